package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"clearance-server-go/models"
)

// ErrCorruptRecord is returned when a persisted record can't be decoded.
// Loads never fall back to defaults in that case.
var ErrCorruptRecord = errors.New("corrupt persisted record")

// Keys names the records and the change channel in the key-value store
type Keys struct {
	Departments string
	Students    string
	Changes     string
}

// DefaultKeys are the record names used when none are configured
func DefaultKeys() Keys {
	return Keys{
		Departments: "fpb_departments_v1",
		Students:    "fpb_students_v1",
		Changes:     "fpb_clearance_changes",
	}
}

// Change is published every time a record is overwritten
type Change struct {
	Key string
}

// Store loads and saves the two persisted record sets
type Store interface {
	LoadDepartments(ctx context.Context) ([]models.Department, error)
	LoadStudents(ctx context.Context) ([]models.Student, error)
	SaveDepartments(ctx context.Context, departments []models.Department) error
	SaveStudents(ctx context.Context, students []models.Student) error
	// Watch delivers a Change for every save made through any Store sharing the
	// same backend, until ctx is done.
	Watch(ctx context.Context) (<-chan Change, error)
	Keys() Keys
}

// kv is the backend surface the record accessors need
type kv interface {
	get(ctx context.Context, key string) (value string, found bool, err error)
	set(ctx context.Context, key, value string) error
	publish(ctx context.Context, channel, payload string) error
	subscribe(ctx context.Context, channel string) (<-chan string, error)
}

// records implements Store on top of any kv backend
type records struct {
	kv     kv
	keys   Keys
	logger *zap.Logger
}

func (r *records) Keys() Keys { return r.keys }

// LoadDepartments returns the persisted departments, seeding the defaults on first use
func (r *records) LoadDepartments(ctx context.Context) ([]models.Department, error) {
	return loadRecord(ctx, r, r.keys.Departments, DefaultDepartments)
}

// LoadStudents returns the persisted students, seeding the defaults on first use
func (r *records) LoadStudents(ctx context.Context) ([]models.Student, error) {
	return loadRecord(ctx, r, r.keys.Students, DefaultStudents)
}

// SaveDepartments overwrites the department record
func (r *records) SaveDepartments(ctx context.Context, departments []models.Department) error {
	if departments == nil {
		departments = []models.Department{}
	}
	return r.save(ctx, r.keys.Departments, departments)
}

// SaveStudents overwrites the student record
func (r *records) SaveStudents(ctx context.Context, students []models.Student) error {
	if students == nil {
		students = []models.Student{}
	}
	return r.save(ctx, r.keys.Students, students)
}

func (r *records) Watch(ctx context.Context) (<-chan Change, error) {
	payloads, err := r.kv.subscribe(ctx, r.keys.Changes)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.keys.Changes, err)
	}
	out := make(chan Change)
	go func() {
		defer close(out)
		for p := range payloads {
			select {
			case out <- Change{Key: p}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (r *records) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := r.kv.set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	// The write already happened; a lost notification only delays other watchers.
	if err := r.kv.publish(ctx, r.keys.Changes, key); err != nil {
		r.logger.Warn("change notification failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func loadRecord[T any](ctx context.Context, r *records, key string, defaults func() []T) ([]T, error) {
	raw, found, err := r.kv.get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if found {
		var out []T
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrCorruptRecord, key, err)
		}
		if out == nil {
			out = []T{}
		}
		return out, nil
	}

	r.logger.Info("record not found, seeding defaults", zap.String("key", key))
	seed := defaults()
	if err := r.save(ctx, key, seed); err != nil {
		return nil, err
	}
	return seed, nil
}
