package repository

import (
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrEnrolleeNotFound     = errors.New("enrollee not found")
	ErrReferralNotFound     = errors.New("referral not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrInvalidID            = errors.New("invalid id")
	ErrDuplicateKey         = errors.New("duplicate key")
)

// DuplicateKeyError reports which unique field a write collided on.
type DuplicateKeyError struct {
	Field string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate %s: %v", e.Field, e.Err)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Err
}

// ParseID converts a hex string into an ObjectID.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, hex)
	}
	return id, nil
}

var dupIndexPattern = regexp.MustCompile(`index: (\S+) dup key`)

// classifyWriteErr turns a Mongo E11000 into a DuplicateKeyError naming the
// field whose single-field index (field_1) collided.
func classifyWriteErr(err error, fields ...string) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}
	index := duplicateIndex(err)
	for _, f := range fields {
		if index == f+"_1" {
			return &DuplicateKeyError{Field: f, Err: err}
		}
	}
	return &DuplicateKeyError{Field: "unknown", Err: err}
}

// duplicateIndex pulls the index name out of the first E11000 server message.
func duplicateIndex(err error) string {
	msgs := []string{}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				msgs = append(msgs, e.Message)
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		msgs = append(msgs, ce.Message)
	}
	for _, m := range msgs {
		if sub := dupIndexPattern.FindStringSubmatch(m); sub != nil {
			return sub[1]
		}
	}
	return ""
}
