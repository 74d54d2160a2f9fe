package models

import (
	"strings"
	"testing"

	"ddash-backend/pkg/apperrors"
)

func TestLengthLimitsCountCharacters(t *testing.T) {
	cases := []struct {
		name  string
		check func() error
		ok    bool
	}{
		{"org name 75 runes", func() error { o := Organization{Name: strings.Repeat("界", 75)}; return o.Validate() }, true},
		{"org name 76 runes", func() error { o := Organization{Name: strings.Repeat("界", 76)}; return o.Validate() }, false},
		{"org description 255 runes", func() error {
			o := Organization{Name: "Acme", Description: strings.Repeat("é", 255)}
			return o.Validate()
		}, true},
		{"project title 3 runes", func() error { p := Project{Title: "日本語"}; return p.Validate() }, true},
		{"project title 2 runes", func() error { p := Project{Title: "日本"}; return p.Validate() }, false},
		{"project title 75 runes", func() error { p := Project{Title: strings.Repeat("ü", 75)}; return p.Validate() }, true},
		{"task title 255 runes", func() error {
			task := Task{Title: strings.Repeat("ñ", 255), State: TaskStateTodo}
			return task.Validate()
		}, true},
		{"task title 256 runes", func() error {
			task := Task{Title: strings.Repeat("ñ", 256), State: TaskStateTodo}
			return task.Validate()
		}, false},
	}
	for _, c := range cases {
		err := c.check()
		if c.ok && err != nil {
			t.Errorf("%s: expected success, got %v", c.name, err)
		}
		if !c.ok && !apperrors.Is(err, apperrors.KindValidation) {
			t.Errorf("%s: expected %s, got %v", c.name, apperrors.KindValidation, err)
		}
	}
}
