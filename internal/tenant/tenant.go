package tenant

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel errors for tenant resolution and binding.
var (
	ErrEmptyTenant       = errors.New("tenant: empty tenant identifier")
	ErrUnknownTenant     = errors.New("tenant: unknown tenant")
	ErrTenantNotResolved = errors.New("tenant: not resolved")
	ErrTenantConflict    = errors.New("tenant: unit of work already bound to another tenant")
	ErrUnitClosed        = errors.New("tenant: unit of work has ended")
)

// ID identifies a logical tenant. In partition mode it is stored verbatim in
// the discriminator column; in schema mode it also names a schema.
type ID string

func (id ID) String() string { return string(id) }

// ParseID turns a raw inbound token into an ID.
func ParseID(token string) (ID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrEmptyTenant
	}
	return ID(token), nil
}

// Mode selects the isolation strategy used by the data router.
type Mode string

const (
	ModeSchema    Mode = "schema"
	ModePartition Mode = "partition"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSchema:
		return ModeSchema, nil
	case ModePartition:
		return ModePartition, nil
	default:
		return "", fmt.Errorf("tenant: unknown mode %q (want %q or %q)", s, ModeSchema, ModePartition)
	}
}

var schemaIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,47}$`)

// ValidSchemaID reports whether id can be mapped onto a schema name without
// quoting or truncation.
func ValidSchemaID(id ID) bool {
	return schemaIDPattern.MatchString(string(id))
}

// SchemaName returns the physical schema holding the tenant's tables.
func SchemaName(prefix string, id ID) string {
	return prefix + string(id)
}
