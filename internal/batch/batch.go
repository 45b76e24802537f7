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

// Package batch fits many light curves concurrently.
package batch

import (
	"context"
	"sync/atomic"

	"github.com/mlnoga/rainbow/internal/color"
	"github.com/mlnoga/rainbow/internal/lightcurve"
	"github.com/mlnoga/rainbow/internal/rainbow"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fit outcome of one light curve. Exactly one of Result and Err is set. A
// failed fit with a fill value carries the filled Result, sets Filled and
// keeps the reason in Error.
type Outcome struct {
	Index  int             `json:"index" yaml:"index"`
	ID     string          `json:"id,omitempty" yaml:"id,omitempty"`
	N      int             `json:"n" yaml:"n"`
	Result *rainbow.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Peak   *rainbow.Peak   `json:"peak,omitempty" yaml:"peak,omitempty"`
	Color  string          `json:"color,omitempty" yaml:"color,omitempty"` // hex colour of the peak temperature
	Filled bool            `json:"filled,omitempty" yaml:"filled,omitempty"`
	Err    error           `json:"-" yaml:"-"`
	Error  string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// Fits one light curve and summarizes its peak
func FitOne(f *rainbow.Fitter, lc *lightcurve.LightCurve, opts *rainbow.FitOptions) Outcome {
	out := Outcome{ID: lc.ID, N: lc.Len()}
	res, err := f.FitResult(lc.T, lc.Flux, lc.Sigma, lc.Band, opts)
	if err != nil && opts != nil && opts.FillValue != nil && rainbow.IsFitFailure(err) {
		out.Result, out.Filled, out.Error = f.FillResult(*opts.FillValue), true, err.Error()
		return out
	}
	if err != nil {
		out.Err, out.Error = err, err.Error()
		return out
	}
	out.Result = res
	if peak, err := f.Peak(res.Params); err == nil {
		out.Peak = peak
		out.Color = color.Hex(peak.Temperature)
	}
	return out
}

// Fits light curves with at most threads fits running at once, and returns
// their outcomes in input order. Individual fit failures are recorded in the
// outcomes, only cancellation of the context aborts the batch.
func FitAll(ctx context.Context, f *rainbow.Fitter, lcs []*lightcurve.LightCurve, threads int, opts *rainbow.FitOptions, log *zap.Logger) ([]Outcome, error) {
	if len(lcs) == 0 {
		return nil, nil
	}
	if threads < 1 {
		threads = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("fitting batch", zap.Int("lightcurves", len(lcs)), zap.Int("threads", threads))

	outs := make([]Outcome, len(lcs))
	var succeeded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i, lc := range lcs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outs[i] = FitOne(f, lc, opts)
			outs[i].Index = i
			if outs[i].Err != nil || outs[i].Filled {
				failed.Add(1)
				log.Debug("fit failed", zap.Int("index", i), zap.String("id", lc.ID), zap.String("error", outs[i].Error))
			} else {
				succeeded.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("batch complete", zap.Int64("succeeded", succeeded.Load()), zap.Int64("failed", failed.Load()))
	return outs, nil
}
