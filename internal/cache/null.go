package cache

import "folio/internal/cms"

// Null stores nothing. Every Get is a miss.
type Null struct{}

func (Null) Get(string) (string, bool, error) { return "", false, nil }
func (Null) Set(string, string) error         { return nil }
func (Null) Remove(string) error              { return nil }
func (Null) Flush() error                     { return nil }

var _ cms.Cache = Null{}
