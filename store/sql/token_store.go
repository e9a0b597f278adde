package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-trust/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenStore persists the identity-server binding, per-manager scalar
// tokens and pending three-pid bindings in SQL. All URL keys are stored
// canonicalized so lookups survive formatting drift.
type TokenStore struct {
	db          *bun.DB
	scalarRepo  repository.Repository[*scalarTokenRecord]
	bindingRepo repository.Repository[*pendingBindingRecord]
}

func (s *TokenStore) GetIdentityConfig(ctx context.Context) (core.IdentityServerConfig, error) {
	if s == nil || s.db == nil {
		return core.IdentityServerConfig{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	record := &identityConfigRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", identityConfigKey).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.IdentityServerConfig{}, nil
	}
	if err != nil {
		return core.IdentityServerConfig{}, err
	}
	return core.IdentityServerConfig{
		URL:   clonePointer(record.URL),
		Token: clonePointer(record.Token),
	}, nil
}

func (s *TokenStore) SetIdentityConfig(ctx context.Context, config core.IdentityServerConfig) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	now := time.Now().UTC()
	record := &identityConfigRecord{
		ID:        identityConfigKey,
		URL:       canonicalPointer(config.URL),
		Token:     clonePointer(config.Token),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("url = EXCLUDED.url").
		Set("token = EXCLUDED.token").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *TokenStore) SetIdentityToken(ctx context.Context, token string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &identityConfigRecord{}
		err := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", identityConfigKey).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNoIdentityServer
		}
		if err != nil {
			return err
		}
		if record.URL == nil || strings.TrimSpace(*record.URL) == "" {
			return core.ErrNoIdentityServer
		}
		_, err = tx.NewUpdate().
			Model((*identityConfigRecord)(nil)).
			Set("token = ?", token).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", identityConfigKey).
			Exec(ctx)
		return err
	})
}

func (s *TokenStore) ClearIdentityToken(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	_, err := s.db.NewUpdate().
		Model((*identityConfigRecord)(nil)).
		Set("token = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", identityConfigKey).
		Exec(ctx)
	return err
}

func (s *TokenStore) GetScalarToken(ctx context.Context, apiURL string) (string, error) {
	if s == nil || s.scalarRepo == nil {
		return "", fmt.Errorf("sqlstore: token store is not configured")
	}
	records, _, err := s.scalarRepo.List(ctx,
		repository.SelectBy("api_url", "=", core.CanonicalizeServerURL(apiURL)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", nil
	}
	return records[0].Token, nil
}

func (s *TokenStore) SetScalarToken(ctx context.Context, apiURL, token string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	canonical := core.CanonicalizeServerURL(apiURL)
	if canonical == "" {
		return fmt.Errorf("sqlstore: scalar api url is required")
	}
	now := time.Now().UTC()
	record := &scalarTokenRecord{
		ID:        uuid.NewString(),
		APIURL:    canonical,
		Token:     token,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (api_url) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *TokenStore) ClearScalarToken(ctx context.Context, apiURL string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*scalarTokenRecord)(nil)).
		Where("api_url = ?", core.CanonicalizeServerURL(apiURL)).
		Exec(ctx)
	return err
}

func (s *TokenStore) GetPendingBinding(ctx context.Context, pid core.ThreePid) (core.PendingBinding, bool, error) {
	if s == nil || s.bindingRepo == nil {
		return core.PendingBinding{}, false, fmt.Errorf("sqlstore: token store is not configured")
	}
	medium, address := normalizePidColumns(pid)
	records, _, err := s.bindingRepo.List(ctx,
		repository.SelectBy("medium", "=", medium),
		repository.SelectBy("address", "=", address),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.PendingBinding{}, false, err
	}
	if len(records) == 0 {
		return core.PendingBinding{}, false, nil
	}
	return records[0].toDomain(), true, nil
}

func (s *TokenStore) SavePendingBinding(ctx context.Context, binding core.PendingBinding) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	if err := binding.ThreePid.Validate(); err != nil {
		return err
	}
	medium, address := normalizePidColumns(binding.ThreePid)
	createdAt := binding.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	record := &pendingBindingRecord{
		ID:           uuid.NewString(),
		Medium:       medium,
		Address:      address,
		ClientSecret: binding.ClientSecret,
		SID:          binding.SID,
		SendAttempt:  binding.SendAttempt,
		CreatedAt:    createdAt,
		UpdatedAt:    time.Now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (medium, address) DO UPDATE").
		Set("client_secret = EXCLUDED.client_secret").
		Set("sid = EXCLUDED.sid").
		Set("send_attempt = EXCLUDED.send_attempt").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *TokenStore) DeletePendingBinding(ctx context.Context, pid core.ThreePid) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	medium, address := normalizePidColumns(pid)
	_, err := s.db.NewDelete().
		Model((*pendingBindingRecord)(nil)).
		Where("medium = ?", medium).
		Where("address = ?", address).
		Exec(ctx)
	return err
}

func (r *pendingBindingRecord) toDomain() core.PendingBinding {
	return core.PendingBinding{
		ThreePid: core.ThreePid{
			Medium:  r.Medium,
			Address: r.Address,
		},
		ClientSecret: r.ClientSecret,
		SID:          r.SID,
		SendAttempt:  r.SendAttempt,
		CreatedAt:    r.CreatedAt,
	}
}

func normalizePidColumns(pid core.ThreePid) (string, string) {
	return strings.TrimSpace(strings.ToLower(pid.Medium)), strings.TrimSpace(pid.Address)
}

func canonicalPointer(input *string) *string {
	if input == nil {
		return nil
	}
	value := core.CanonicalizeServerURL(*input)
	return &value
}

func clonePointer(input *string) *string {
	if input == nil {
		return nil
	}
	value := *input
	return &value
}
