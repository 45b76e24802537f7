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

// Package rest serves fits, model evaluations and peak summaries over HTTP.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mlnoga/rainbow/internal/batch"
	"github.com/mlnoga/rainbow/internal/color"
	"github.com/mlnoga/rainbow/internal/lightcurve"
	"github.com/mlnoga/rainbow/internal/rainbow"
	"github.com/mlnoga/rainbow/web"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// HTTP front end of one fitter
type Server struct {
	fitter  *rainbow.Fitter
	opts    *rainbow.FitOptions
	threads int
	metrics *Metrics
	log     *zap.Logger
}

// Creates a server for the given fitter. Batch requests use at most threads
// concurrent fits. A nil metrics disables instrumentation.
func New(f *rainbow.Fitter, opts *rainbow.FitOptions, threads int, m *Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts == nil {
		opts = &rainbow.FitOptions{}
	}
	return &Server{fitter: f, opts: opts, threads: max(threads, 1), metrics: m, log: log}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	if s.metrics != nil {
		r.Use(s.metrics.Middleware())
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	r.GET("/", getIndex)
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.GET("/parameters", s.getParameters)
			v1.POST("/fit", s.postFit)
			v1.POST("/batch", s.postBatch)
			v1.POST("/model", s.postModel)
			v1.POST("/peak", s.postPeak)
		}
	}
	return r
}

// Listens on addr until the context is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	s.log.Info("starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "rest: listen")
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func getIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

type parametersResponse struct {
	Names       []string `json:"names"`
	Common      []string `json:"common"`
	Bands       []string `json:"bands"`
	Size        int      `json:"size"`
	Bolometric  string   `json:"bolometric"`
	Temperature string   `json:"temperature"`
	Baseline    bool     `json:"with_baseline"`
}

func (s *Server) getParameters(c *gin.Context) {
	f := s.fitter
	c.JSON(http.StatusOK, parametersResponse{
		Names:       f.Names(),
		Common:      f.Common(),
		Bands:       f.Bands().Names(),
		Size:        f.Size(),
		Bolometric:  f.BolometricTerm().Name(),
		Temperature: f.TemperatureTerm().Name(),
		Baseline:    f.WithBaseline(),
	})
}

// Observations of one light curve
type LightCurveArgs struct {
	ID    string    `json:"id"`
	T     []float64 `json:"t" validate:"required,min=1"`
	Flux  []float64 `json:"flux" validate:"required,min=1"`
	Sigma []float64 `json:"sigma" validate:"required,min=1"`
	Band  []string  `json:"band" validate:"required,min=1,dive,required"`
}

func (a *LightCurveArgs) lightCurve() *lightcurve.LightCurve {
	return &lightcurve.LightCurve{ID: a.ID, T: a.T, Flux: a.Flux, Sigma: a.Sigma, Band: a.Band}
}

type postFitArgs struct {
	LightCurveArgs
	Sorted bool `json:"sorted"`
}

func (s *Server) postFit(c *gin.Context) {
	var args postFitArgs
	if !bindAndValidate(c, &args) {
		return
	}
	opts := *s.opts
	opts.Sorted = args.Sorted

	start := time.Now()
	out := batch.FitOne(s.fitter, args.lightCurve(), &opts)
	s.metrics.observeFit(out, time.Since(start))
	if out.Err != nil {
		s.log.Debug("fit failed", zap.String("id", args.ID), zap.Error(out.Err))
		c.JSON(statusOf(out.Err), gin.H{"error": out.Error})
		return
	}
	c.JSON(http.StatusOK, out)
}

type postBatchArgs struct {
	LightCurves []LightCurveArgs `json:"lightcurves" validate:"required,min=1,dive"`
	Threads     int              `json:"threads" default:"4" validate:"gte=1,lte=256"` // capped by the server's limit
}

func (s *Server) postBatch(c *gin.Context) {
	var args postBatchArgs
	if !bindAndValidate(c, &args) {
		return
	}
	lcs := make([]*lightcurve.LightCurve, len(args.LightCurves))
	for i := range args.LightCurves {
		lcs[i] = args.LightCurves[i].lightCurve()
	}
	start := time.Now()
	outs, err := batch.FitAll(c.Request.Context(), s.fitter, lcs, min(args.Threads, s.threads), s.opts, s.log)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	elapsed := time.Since(start) / time.Duration(len(outs))
	for _, out := range outs {
		s.metrics.observeFit(out, elapsed)
	}
	c.JSON(http.StatusOK, gin.H{"outcomes": outs})
}

type postModelArgs struct {
	T      []float64 `json:"t" validate:"required,min=1"`
	Band   []string  `json:"band" validate:"required,min=1,dive,required"`
	Params []float64 `json:"params" validate:"required,min=1"`
}

func (s *Server) postModel(c *gin.Context) {
	var args postModelArgs
	if !bindAndValidate(c, &args) {
		return
	}
	flux, err := s.fitter.Model(args.T, args.Band, args.Params)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flux": flux})
}

type postPeakArgs struct {
	Params []float64 `json:"params" validate:"required,min=1"`
}

type peakResponse struct {
	*rainbow.Peak
	Color string `json:"color"`
}

func (s *Server) postPeak(c *gin.Context) {
	var args postPeakArgs
	if !bindAndValidate(c, &args) {
		return
	}
	peak, err := s.fitter.Peak(args.Params)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, peakResponse{Peak: peak, Color: color.Hex(peak.Temperature)})
}

// HTTP status for a rainbow error. Bad input is the client's fault, fits
// which cannot succeed on valid input are unprocessable.
func statusOf(err error) int {
	switch {
	case eris.Is(err, rainbow.ErrInvalidData), eris.Is(err, rainbow.ErrConfig):
		return http.StatusBadRequest
	case rainbow.IsFitFailure(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
