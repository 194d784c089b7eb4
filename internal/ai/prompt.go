package ai

import "strings"

const (
	requirementLabel = "要求："
	contentLabel     = "内容："
	filenameLabel    = "文件名："
)

// GenericPhrase is the instruction used for fields without a dedicated phrase
const GenericPhrase = "请优化以下内容"

var fieldPhrases = map[string]string{
	"title":             "请使发明名称简洁准确地体现技术主题",
	"technicalField":    "请准确说明本发明所属的技术领域",
	"backgroundArt":     "请客观描述现有技术及其存在的问题",
	"inventionContent":  "请清晰概括发明要解决的技术问题",
	"technicalSolution": "请完整清楚地描述技术方案的实现细节",
	"beneficialEffects": "请结合技术方案说明有益效果",
	"figureDescription": "请规范描述各附图的内容",
	"implementation":    "请给出可以实施的具体实施方式",
	"claimsSuggestion":  "请按权利要求书的格式组织保护范围",
}

// FieldPhrase returns the polishing instruction for a disclosure section
func FieldPhrase(field string) string {
	if phrase, ok := fieldPhrases[field]; ok {
		return phrase
	}
	return GenericPhrase
}

func polishPrompt(phrase, content string) string {
	var b strings.Builder
	b.WriteString("请按照以下要求润色专利交底书内容。\n")
	b.WriteString(requirementLabel + phrase + "\n")
	b.WriteString(contentLabel + "\n")
	b.WriteString(content)
	return b.String()
}

// parsePolishPrompt recovers the phrase and content from a polish prompt
func parsePolishPrompt(prompt string) (phrase, content string, ok bool) {
	head, content, found := strings.Cut(prompt, "\n"+contentLabel+"\n")
	if !found {
		return "", "", false
	}
	idx := strings.Index(head, requirementLabel)
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(head[idx+len(requirementLabel):]), content, true
}

func extractPrompt(filename, content string) string {
	var b strings.Builder
	b.WriteString("请从以下技术文档中提取专利交底书字段。\n")
	b.WriteString(filenameLabel + filename + "\n")
	b.WriteString(contentLabel + "\n")
	b.WriteString(content)
	return b.String()
}
