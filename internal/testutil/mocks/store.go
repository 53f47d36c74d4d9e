// Package mocks provides testify mocks for the interfaces the flow depends on.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Store is a testify mock for session.Store
type Store struct {
	mock.Mock
}

// Get retrieves a value
func (m *Store) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

// Set stores a value
func (m *Store) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// Remove deletes a value
func (m *Store) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Navigator is a testify mock for auth.Navigator
type Navigator struct {
	mock.Mock
}

// Navigate records the URL the flow navigated to
func (m *Navigator) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

// LastURL returns the URL of the most recent Navigate call
func (m *Navigator) LastURL() string {
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == "Navigate" {
			return m.Calls[i].Arguments.String(1)
		}
	}
	return ""
}
