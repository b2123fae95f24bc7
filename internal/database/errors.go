package database

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ConstraintKind classifies a storage constraint failure.
type ConstraintKind int

// Constraint kinds.
const (
	ConstraintUnknown ConstraintKind = iota
	ConstraintUnique
	ConstraintForeignKey
	ConstraintCheck
)

// Constraint describes a constraint failure reported by the driver.
type Constraint struct {
	Kind   ConstraintKind
	Name   string
	Table  string
	Column string
}

// PostgreSQL SQLSTATE codes for integrity violations.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// constraintColumns maps the constraint names declared in the migrations to their columns.
var constraintColumns = map[string]string{
	"uq_users_email":       "email",
	"uq_users_nickname":    "nickname",
	"uq_categories_name":   "name",
	"uq_tags_name":         "name",
	"uq_likes_user_target": "user_id,target_type,target_id",
	"pk_post_tags":         "post_id,tag_id",
	"fk_posts_user":        "user_id",
	"fk_posts_category":    "category_id",
	"fk_comments_post":     "post_id",
	"fk_comments_user":     "user_id",
	"fk_comments_parent":   "parent_id",
	"fk_post_tags_post":    "post_id",
	"fk_post_tags_tag":     "tag_id",
	"fk_likes_user":        "user_id",
}

var pgDetailKey = regexp.MustCompile(`Key \(([^)]+)\)=`)

// ParseConstraintError reports whether err is an integrity constraint failure and which one.
func ParseConstraintError(err error) (Constraint, bool) {
	if err == nil {
		return Constraint{}, false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fromPgError(pgErr)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return fromSQLiteError(sqliteErr)
	}
	var sqliteErrPtr *sqlite3.Error
	if errors.As(err, &sqliteErrPtr) && sqliteErrPtr != nil {
		return fromSQLiteError(*sqliteErrPtr)
	}

	return fromMessage(err.Error())
}

func isConstraintError(err error) bool {
	_, ok := ParseConstraintError(err)
	return ok
}

func fromPgError(pgErr *pgconn.PgError) (Constraint, bool) {
	c := Constraint{Name: pgErr.ConstraintName, Table: pgErr.TableName, Column: pgErr.ColumnName}
	switch pgErr.Code {
	case pgUniqueViolation:
		c.Kind = ConstraintUnique
	case pgForeignKeyViolation:
		c.Kind = ConstraintForeignKey
	case pgCheckViolation:
		c.Kind = ConstraintCheck
	default:
		return Constraint{}, false
	}
	if col, ok := constraintColumns[c.Name]; ok {
		c.Column = col
	} else if c.Column == "" {
		if m := pgDetailKey.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
			c.Column = strings.ReplaceAll(m[1], " ", "")
		}
	}
	return c, true
}

func fromSQLiteError(e sqlite3.Error) (Constraint, bool) {
	var c Constraint
	switch e.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		c.Kind = ConstraintUnique
	case sqlite3.ErrConstraintForeignKey:
		c.Kind = ConstraintForeignKey
	case sqlite3.ErrConstraintCheck:
		c.Kind = ConstraintCheck
	default:
		if e.Code != sqlite3.ErrConstraint {
			return Constraint{}, false
		}
		return fromMessage(e.Error())
	}
	c.Table, c.Column = parseSQLiteColumns(e.Error())
	if c.Kind == ConstraintCheck {
		c.Name = c.Column
		c.Column = ""
	}
	return c, true
}

// parseSQLiteColumns reads "UNIQUE constraint failed: likes.user_id, likes.target_type".
func parseSQLiteColumns(msg string) (table, column string) {
	idx := strings.Index(msg, "constraint failed: ")
	if idx < 0 {
		return "", ""
	}
	parts := strings.Split(msg[idx+len("constraint failed: "):], ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if dot := strings.Index(p, "."); dot >= 0 {
			if table == "" {
				table = p[:dot]
			}
			p = p[dot+1:]
		}
		cols = append(cols, p)
	}
	return table, strings.Join(cols, ",")
}

func fromMessage(msg string) (Constraint, bool) {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "duplicate key value") || strings.Contains(lower, "unique constraint failed") || strings.Contains(msg, pgUniqueViolation):
		c := Constraint{Kind: ConstraintUnique}
		c.Table, c.Column = parseSQLiteColumns(msg)
		return c, true
	case strings.Contains(lower, "violates foreign key constraint") || strings.Contains(lower, "foreign key constraint failed") || strings.Contains(msg, pgForeignKeyViolation):
		return Constraint{Kind: ConstraintForeignKey}, true
	case strings.Contains(lower, "violates check constraint") || strings.Contains(lower, "check constraint failed"):
		return Constraint{Kind: ConstraintCheck}, true
	}
	return Constraint{}, false
}
