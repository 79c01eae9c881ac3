package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bookkeeping/internal/database"
	"bookkeeping/internal/model"
	"bookkeeping/internal/repository"
	"bookkeeping/pkg/apperror"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EncodeSetting renders value as the stored text of a setting of the given type
func EncodeSetting(settingType string, value interface{}) (string, error) {
	switch settingType {
	case model.SettingString:
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("expected a string, got %T", value)
		}
		return s, nil
	case model.SettingNumber:
		f, ok := toNumber(value)
		if !ok {
			return "", fmt.Errorf("expected a number, got %T", value)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case model.SettingBoolean:
		b, ok := value.(bool)
		if !ok {
			return "", fmt.Errorf("expected a boolean, got %T", value)
		}
		return strconv.FormatBool(b), nil
	case model.SettingJSON:
		raw, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("value is not JSON encodable: %w", err)
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	return "", fmt.Errorf("unknown setting type %q", settingType)
}

// DecodeSetting parses stored text back into the value of the declared type
func DecodeSetting(settingType, raw string) (interface{}, error) {
	switch settingType {
	case model.SettingString:
		return raw, nil
	case model.SettingNumber:
		return strconv.ParseFloat(raw, 64)
	case model.SettingBoolean:
		return strconv.ParseBool(raw)
	case model.SettingJSON:
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, fmt.Errorf("unknown setting type %q", settingType)
}

func toNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// inferType picks the setting type of a JSON-decoded value
func inferType(value interface{}) string {
	switch value.(type) {
	case string:
		return model.SettingString
	case bool:
		return model.SettingBoolean
	case float64, float32, int, int64, json.Number:
		return model.SettingNumber
	}
	return model.SettingJSON
}

// --- DTOs ---

type SettingView struct {
	Key         string      `json:"key"`
	Value       interface{} `json:"value"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type SettingInput struct {
	Key         string      `json:"key" binding:"required,max=100"`
	Value       interface{} `json:"value"`
	Type        string      `json:"type" binding:"omitempty,oneof=string number boolean json"`
	Description *string     `json:"description"`
}

type SetSettingRequest struct {
	Value       interface{} `json:"value"`
	Type        string      `json:"type" binding:"omitempty,oneof=string number boolean json"`
	Description *string     `json:"description"`
}

type ImportSettingsRequest struct {
	Settings []SettingInput `json:"settings" binding:"required,dive"`
	Replace  bool           `json:"replace"`
}

type SettingsExport struct {
	Version    string        `json:"version"`
	ExportedAt time.Time     `json:"exported_at"`
	Settings   []SettingView `json:"settings"`
}

type CompanyRequest struct {
	CompanyName     string `json:"company_name" binding:"required,max=255"`
	TaxID           string `json:"tax_id" binding:"omitempty,numeric,len=8"`
	Address         string `json:"address"`
	Phone           string `json:"phone" binding:"max=30"`
	Email           string `json:"email" binding:"omitempty,email"`
	ContactPerson   string `json:"contact_person" binding:"max=100"`
	BusinessType    string `json:"business_type" binding:"max=100"`
	EstablishedDate string `json:"established_date" binding:"omitempty,date"`
}

const settingsExportVersion = "1"

// --- Interface ---

type SettingsService interface {
	List(ctx context.Context) ([]SettingView, error)
	Get(ctx context.Context, key string) (*SettingView, error)
	Set(ctx context.Context, key string, req SetSettingRequest) (*SettingView, error)
	BulkSet(ctx context.Context, inputs []SettingInput) ([]SettingView, error)
	Import(ctx context.Context, req ImportSettingsRequest) (int, error)
	Export(ctx context.Context) (*SettingsExport, error)
	Reset(ctx context.Context) ([]SettingView, error)
	Company(ctx context.Context, userID string) (*model.CompanyInfo, error)
	UpsertCompany(ctx context.Context, userID string, req CompanyRequest) (*model.CompanyInfo, error)
}

type settingsService struct {
	settingRepo repository.SettingRepository
	companyRepo repository.CompanyRepository
	txManager   repository.TransactionManager
	logger      *zap.Logger
	now         func() time.Time
}

func NewSettingsService(
	settingRepo repository.SettingRepository,
	companyRepo repository.CompanyRepository,
	txManager repository.TransactionManager,
	logger *zap.Logger,
) SettingsService {
	return &settingsService{
		settingRepo: settingRepo,
		companyRepo: companyRepo,
		txManager:   txManager,
		logger:      logger,
		now:         time.Now,
	}
}

// --- Implementation ---

func toView(s model.SystemSetting) (SettingView, error) {
	v, err := DecodeSetting(s.Type, s.Value)
	if err != nil {
		return SettingView{}, fmt.Errorf("setting %s holds an invalid %s value: %w", s.Key, s.Type, err)
	}
	return SettingView{Key: s.Key, Value: v, Type: s.Type, Description: s.Description, UpdatedAt: s.UpdatedAt}, nil
}

func toViews(settings []model.SystemSetting) ([]SettingView, error) {
	out := make([]SettingView, 0, len(settings))
	for _, s := range settings {
		v, err := toView(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *settingsService) List(ctx context.Context) ([]SettingView, error) {
	settings, err := s.settingRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return toViews(settings)
}

func (s *settingsService) Get(ctx context.Context, key string) (*SettingView, error) {
	setting, err := s.settingRepo.Get(ctx, key)
	if err != nil {
		return nil, notFound(err, "Setting")
	}
	v, err := toView(*setting)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// build validates one input against the existing row (if any) and returns the row to store
func (s *settingsService) build(ctx context.Context, in SettingInput, field string) (*model.SystemSetting, error) {
	key := trimmed(in.Key)
	if key == "" {
		return nil, apperror.Validation("Invalid setting", apperror.FieldError{Field: field + "key", Message: "This field is required"})
	}

	row := &model.SystemSetting{Key: key, Type: in.Type}
	existing, err := s.settingRepo.Get(ctx, key)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		row.Description = existing.Description
		if row.Type == "" {
			row.Type = existing.Type
		}
	}
	if row.Type == "" {
		row.Type = inferType(in.Value)
	}
	if in.Description != nil {
		row.Description = *in.Description
	}

	if in.Value == nil {
		return nil, apperror.Validation("Invalid setting", apperror.FieldError{Field: field + "value", Message: "This field is required"})
	}
	encoded, err := EncodeSetting(row.Type, in.Value)
	if err != nil {
		return nil, apperror.Validation("Invalid setting", apperror.FieldError{Field: field + "value", Message: err.Error()})
	}
	row.Value = encoded
	row.UpdatedAt = s.now()
	return row, nil
}

func (s *settingsService) Set(ctx context.Context, key string, req SetSettingRequest) (*SettingView, error) {
	row, err := s.build(ctx, SettingInput{Key: key, Value: req.Value, Type: req.Type, Description: req.Description}, "")
	if err != nil {
		return nil, err
	}
	if err := s.settingRepo.Upsert(ctx, row); err != nil {
		return nil, err
	}
	v, err := toView(*row)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *settingsService) BulkSet(ctx context.Context, inputs []SettingInput) ([]SettingView, error) {
	out := make([]SettingView, 0, len(inputs))
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for i, in := range inputs {
			row, err := s.build(txCtx, in, fmt.Sprintf("settings[%d].", i))
			if err != nil {
				return err
			}
			if err := s.settingRepo.Upsert(txCtx, row); err != nil {
				return err
			}
			v, err := toView(*row)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *settingsService) Import(ctx context.Context, req ImportSettingsRequest) (int, error) {
	seen := make(map[string]bool, len(req.Settings))
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rows := make([]model.SystemSetting, 0, len(req.Settings))
		for i, in := range req.Settings {
			row, err := s.build(txCtx, in, fmt.Sprintf("settings[%d].", i))
			if err != nil {
				return err
			}
			if seen[row.Key] {
				return apperror.Validation("Invalid setting",
					apperror.FieldError{Field: fmt.Sprintf("settings[%d].key", i), Message: "Duplicate key"})
			}
			seen[row.Key] = true
			rows = append(rows, *row)
		}

		if req.Replace {
			return s.settingRepo.ReplaceAll(txCtx, rows)
		}
		for i := range rows {
			if err := s.settingRepo.Upsert(txCtx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("settings imported", zap.Int("count", len(req.Settings)), zap.Bool("replace", req.Replace))
	return len(req.Settings), nil
}

func (s *settingsService) Export(ctx context.Context) (*SettingsExport, error) {
	views, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsExport{Version: settingsExportVersion, ExportedAt: s.now().UTC(), Settings: views}, nil
}

func (s *settingsService) Reset(ctx context.Context) ([]SettingView, error) {
	defaults := database.DefaultSettings()
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.settingRepo.ReplaceAll(txCtx, defaults)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("settings reset to defaults")
	return s.List(ctx)
}

func (s *settingsService) Company(ctx context.Context, userID string) (*model.CompanyInfo, error) {
	info, err := s.companyRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "Company info")
	}
	return info, nil
}

func (s *settingsService) UpsertCompany(ctx context.Context, userID string, req CompanyRequest) (*model.CompanyInfo, error) {
	if trimmed(req.CompanyName) == "" {
		return nil, apperror.Validation("Request validation failed",
			apperror.FieldError{Field: "company_name", Message: "This field is required"})
	}
	if req.EstablishedDate != "" && !validDate(req.EstablishedDate) {
		return nil, apperror.Validation("Request validation failed",
			apperror.FieldError{Field: "established_date", Message: "Must be a date in YYYY-MM-DD format"})
	}

	info := &model.CompanyInfo{
		UserID:          userID,
		CompanyName:     trimmed(req.CompanyName),
		TaxID:           trimmed(req.TaxID),
		Address:         trimmed(req.Address),
		Phone:           trimmed(req.Phone),
		Email:           trimmed(req.Email),
		ContactPerson:   trimmed(req.ContactPerson),
		BusinessType:    trimmed(req.BusinessType),
		EstablishedDate: req.EstablishedDate,
	}
	var out *model.CompanyInfo
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.companyRepo.Upsert(txCtx, info); err != nil {
			return err
		}
		var err error
		out, err = s.companyRepo.FindByUser(txCtx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
