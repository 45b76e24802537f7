// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package store persists batch fit runs and their outcomes.
package store

import (
	"time"

	"github.com/mlnoga/rainbow/internal/rainbow"
	"github.com/rotisserie/eris"
)

var ErrNotFound = eris.New("store: not found")

// Model configuration a run was fitted with
type RunModel struct {
	Bolometric   string   `json:"bolometric" yaml:"bolometric"`
	Temperature  string   `json:"temperature" yaml:"temperature"`
	Bands        []string `json:"bands" yaml:"bands"`
	WithBaseline bool     `json:"with_baseline" yaml:"with_baseline"`
}

// Describes the model of a fitter
func ModelOf(f *rainbow.Fitter) RunModel {
	return RunModel{
		Bolometric:   f.BolometricTerm().Name(),
		Temperature:  f.TemperatureTerm().Name(),
		Bands:        f.Bands().Names(),
		WithBaseline: f.WithBaseline(),
	}
}

// A batch fit run
type Run struct {
	ID        string    `json:"id" yaml:"id"`
	Model     RunModel  `json:"model" yaml:"model"`
	Total     int       `json:"total" yaml:"total"`
	Failed    int       `json:"failed" yaml:"failed"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

type FitStatus string

const (
	FitStatusOK     FitStatus = "ok"
	FitStatusFailed FitStatus = "failed"
	FitStatusFilled FitStatus = "filled" // failed, result carries the fill value
)

// Stored outcome of fitting one light curve
type Fit struct {
	ID        string          `json:"id" yaml:"id"`
	RunID     string          `json:"run_id" yaml:"run_id"`
	Index     int             `json:"index" yaml:"index"`
	ObjectID  string          `json:"object_id,omitempty" yaml:"object_id,omitempty"`
	N         int             `json:"n" yaml:"n"`
	Status    FitStatus       `json:"status" yaml:"status"`
	Result    *rainbow.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Peak      *rainbow.Peak   `json:"peak,omitempty" yaml:"peak,omitempty"`
	Color     string          `json:"color,omitempty" yaml:"color,omitempty"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
}
