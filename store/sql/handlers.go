package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func scalarTokenHandlers() repository.ModelHandlers[*scalarTokenRecord] {
	return repository.ModelHandlers[*scalarTokenRecord]{
		NewRecord: func() *scalarTokenRecord {
			return &scalarTokenRecord{}
		},
		GetID: func(record *scalarTokenRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *scalarTokenRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *scalarTokenRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func pendingBindingHandlers() repository.ModelHandlers[*pendingBindingRecord] {
	return repository.ModelHandlers[*pendingBindingRecord]{
		NewRecord: func() *pendingBindingRecord {
			return &pendingBindingRecord{}
		},
		GetID: func(record *pendingBindingRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *pendingBindingRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *pendingBindingRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
