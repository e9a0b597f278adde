package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

// identityConfigKey is the fixed primary key for the single identity
// server row. The store is session scoped, so there is exactly one
// identity binding at a time.
const identityConfigKey = "session"

type identityConfigRecord struct {
	bun.BaseModel `bun:"table:trust_identity_config,alias:tic"`

	ID        string    `bun:"id,pk"`
	URL       *string   `bun:"url"`
	Token     *string   `bun:"token"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type scalarTokenRecord struct {
	bun.BaseModel `bun:"table:trust_scalar_tokens,alias:tst"`

	ID        string    `bun:"id,pk"`
	APIURL    string    `bun:"api_url,notnull"`
	Token     string    `bun:"token,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type pendingBindingRecord struct {
	bun.BaseModel `bun:"table:trust_pending_bindings,alias:tpb"`

	ID           string    `bun:"id,pk"`
	Medium       string    `bun:"medium,notnull"`
	Address      string    `bun:"address,notnull"`
	ClientSecret string    `bun:"client_secret,notnull"`
	SID          string    `bun:"sid"`
	SendAttempt  int       `bun:"send_attempt,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
