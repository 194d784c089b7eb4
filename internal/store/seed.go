package store

import (
	"context"
	"fmt"
	"time"

	"disclosure-service/internal/model"
)

// PasswordHasher hashes plain text passwords
type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
}

// SeedResult identifies the seeded enterprises
type SeedResult struct {
	SystemEnterpriseID string
	DemoEnterpriseID   string
}

type seedUser struct {
	email    string
	password string
	name     string
	role     string
}

// Seed loads the demo data set: a platform enterprise with the super administrator,
// one demo enterprise with an administrator and a researcher, its AI, prompt and
// field configuration, and a global welcome notice.
func Seed(ctx context.Context, st Store, hasher PasswordHasher) (*SeedResult, error) {
	system := &model.Enterprise{
		Name:       "系统管理企业",
		Code:       "SYSTEM_ADMIN",
		LicenseKey: "SYSTEM-LICENSE-KEY",
		Status:     model.StatusActive,
		MaxUsers:   100,
	}
	if err := st.CreateEnterprise(ctx, system); err != nil {
		return nil, fmt.Errorf("seed system enterprise: %w", err)
	}

	expireAt := time.Now().UTC().AddDate(1, 0, 0).Truncate(24 * time.Hour)
	demo := &model.Enterprise{
		Name:            "示例科技有限公司",
		Code:            "DEMO_TECH",
		LicenseKey:      "DEMO-LICENSE-KEY-2024",
		LicenseExpireAt: &expireAt,
		Status:          model.StatusActive,
		MaxUsers:        model.DefaultMaxUsers,
		ContactName:     "张经理",
		ContactEmail:    "contact@demotech.com",
	}
	if err := st.CreateEnterprise(ctx, demo); err != nil {
		return nil, fmt.Errorf("seed demo enterprise: %w", err)
	}

	users := []struct {
		enterpriseID string
		seedUser
	}{
		{system.ID, seedUser{"superadmin@example.com", "superadmin123", "超级管理员", model.RoleSuperAdmin}},
		{demo.ID, seedUser{"admin@demotech.com", "admin123", "企业管理员", model.RoleAdmin}},
		{demo.ID, seedUser{"researcher@demotech.com", "researcher123", "研发人员", model.RoleResearcher}},
	}
	for _, u := range users {
		hash, err := hasher.Hash(ctx, u.password)
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", u.email, err)
		}
		if err := st.CreateUser(ctx, &model.User{
			EnterpriseID: u.enterpriseID,
			Email:        u.email,
			PasswordHash: hash,
			Name:         u.name,
			Role:         u.role,
			Status:       model.StatusActive,
		}); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", u.email, err)
		}
	}

	if _, err := st.UpsertAIConfig(ctx, demo.ID, func(c *model.AIConfig) error {
		c.DefaultModelID = model.DefaultModelID
		c.Enabled = true
		c.Models = model.AIModelList{
			{ModelID: model.DefaultModelID, Provider: "doubao", Name: "豆包Pro", BaseURL: "https://ark.cn-beijing.volces.com/api/v3", Enabled: true, Priority: 1},
			{ModelID: "gpt-4", Provider: "openai", Name: "GPT-4", BaseURL: "https://api.openai.com/v1", Enabled: false, Priority: 2},
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("seed ai config: %w", err)
	}

	prompts := []model.PromptConfig{
		{Type: model.PromptPolish, Name: "默认润色提示词", Content: "你是一位资深的专利代理人..."},
		{Type: model.PromptExtract, Name: "默认提取提示词", Content: "你是一位专业的专利分析师..."},
	}
	for i := range prompts {
		p := prompts[i]
		p.EnterpriseID = demo.ID
		p.IsDefault, p.IsActive, p.Version = true, true, 1
		if err := st.CreatePromptConfig(ctx, &p); err != nil {
			return nil, fmt.Errorf("seed prompt %s: %w", p.Name, err)
		}
	}

	fields := []model.FieldConfig{
		{FieldKey: "title", FieldLabel: "发明名称", MinLength: 5, OrderIndex: 1},
		{FieldKey: "technicalField", FieldLabel: "技术领域", MinLength: 5, OrderIndex: 2},
		{FieldKey: "backgroundArt", FieldLabel: "背景技术", MinLength: 100, OrderIndex: 3},
		{FieldKey: "technicalSolution", FieldLabel: "技术方案", MinLength: 200, OrderIndex: 4},
	}
	for i := range fields {
		f := fields[i]
		f.EnterpriseID = demo.ID
		f.IsRequired, f.IsActive = true, true
		if err := st.CreateFieldConfig(ctx, &f); err != nil {
			return nil, fmt.Errorf("seed field %s: %w", f.FieldKey, err)
		}
	}

	if err := st.CreateNotification(ctx, &model.Notification{
		Type:     model.NotificationSystem,
		Title:    "欢迎使用专利交底书智能生成工具",
		Content:  "感谢您使用我们的系统！",
		Priority: model.PriorityNormal,
	}); err != nil {
		return nil, fmt.Errorf("seed welcome notification: %w", err)
	}

	return &SeedResult{SystemEnterpriseID: system.ID, DemoEnterpriseID: demo.ID}, nil
}
