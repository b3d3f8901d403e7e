// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api implements the storefront HTTP server. Product pages record a
// visit for the resolved viewer and return the visit-adjusted price; listing
// and quote endpoints price without recording.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	ecom "github.com/Shakthi-16/ecom-project"
	"github.com/Shakthi-16/ecom-project/internal/visits/catalog"
	"github.com/Shakthi-16/ecom-project/internal/visits/clientstore"
	"github.com/Shakthi-16/ecom-project/internal/visits/core"
	"github.com/Shakthi-16/ecom-project/internal/visits/telemetry"
)

// DefaultCookiePrefix prefixes the cookies holding guest state.
const DefaultCookiePrefix = "sf_"

// RequestIDHeader carries the per-request id on responses.
const RequestIDHeader = "X-Request-ID"

// Config holds server options. The zero value serves guests only.
type Config struct {
	// JWTSecret verifies HS256 bearer tokens. Empty rejects every bearer token.
	JWTSecret     []byte
	CookiePrefix  string
	SecureCookies bool
	// ExposeMetrics mounts the Prometheus handler at /metrics.
	ExposeMetrics bool
	Logger        logrus.FieldLogger
}

// Server handles storefront requests.
type Server struct {
	tracker      *core.Tracker
	catalog      *catalog.Catalog
	jwtSecret    []byte
	cookiePrefix string
	secure       bool
	metrics      bool
	log          logrus.FieldLogger
}

// NewServer creates a server pricing products from cat through tracker.
func NewServer(tracker *core.Tracker, cat *catalog.Catalog, cfg Config) *Server {
	s := &Server{
		tracker:      tracker,
		catalog:      cat,
		jwtSecret:    cfg.JWTSecret,
		cookiePrefix: cfg.CookiePrefix,
		secure:       cfg.SecureCookies,
		metrics:      cfg.ExposeMetrics,
		log:          cfg.Logger,
	}
	if s.cookiePrefix == "" {
		s.cookiePrefix = DefaultCookiePrefix
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

// RegisterRoutes sets up the HTTP routes on r.
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.Use(s.requestMiddleware)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)
	r.Handle("/products", s.identityMiddleware(http.HandlerFunc(s.handleListProducts))).Methods(http.MethodGet)
	r.Handle("/products/{id}", s.identityMiddleware(http.HandlerFunc(s.handleViewProduct))).Methods(http.MethodGet)
	r.Handle("/products/{id}/quote", s.identityMiddleware(http.HandlerFunc(s.handleQuote))).Methods(http.MethodGet)
	if s.metrics {
		r.Handle("/metrics", telemetry.Handler()).Methods(http.MethodGet)
	}
}

// Router returns a fresh router with all routes registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	s.RegisterRoutes(r)
	return r
}

// HTTPServer returns an http.Server for addr. The caller owns its lifecycle.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// ProductView is one priced product in a response.
type ProductView struct {
	Product      catalog.Product  `json:"product"`
	Category     catalog.Category `json:"category"`
	Price        ecom.PriceQuote  `json:"price"`
	DisplayPrice string           `json:"display_price"`
	Recorded     bool             `json:"recorded,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
}

type productList struct {
	Products []ProductView `json:"products"`
	Count    int           `json:"count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.catalog.Categories()})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	products := s.catalog.Search(filter)
	items := make([]core.Item, len(products))
	for i, p := range products {
		items[i] = core.Item{ID: p.ID, BasePrice: p.BasePrice}
	}
	results, err := s.tracker.QuoteAll(r.Context(), s.clientStore(w, r), IdentityFrom(r.Context()), items)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := productList{Products: make([]ProductView, 0, len(products))}
	for i, p := range products {
		out.Products = append(out.Products, s.toView(p, results[i]))
	}
	out.Count = len(out.Products)
	writeJSON(w, http.StatusOK, out)
}

// parseFilter reads q, category, min_price, max_price and in_stock.
func parseFilter(q url.Values) (catalog.Filter, error) {
	f := catalog.Filter{Term: q.Get("q"), CategoryID: q.Get("category")}
	var err error
	if f.MinPrice, err = priceParam(q, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = priceParam(q, "max_price"); err != nil {
		return f, err
	}
	if v := q.Get("in_stock"); v != "" {
		if f.InStock, err = strconv.ParseBool(v); err != nil {
			return f, fmt.Errorf("invalid in_stock %q", v)
		}
	}
	return f, nil
}

func priceParam(q url.Values, name string) (*float64, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("invalid %s %q", name, v)
	}
	return &f, nil
}

func (s *Server) handleViewProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(w, r)
	if !ok {
		return
	}
	res, err := s.tracker.View(r.Context(), s.clientStore(w, r), IdentityFrom(r.Context()), p.ID, p.BasePrice)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toView(p, res))
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(w, r)
	if !ok {
		return
	}
	res, err := s.tracker.Quote(r.Context(), s.clientStore(w, r), IdentityFrom(r.Context()), p.ID, p.BasePrice)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toView(p, res))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (catalog.Product, bool) {
	p, err := s.catalog.Product(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return catalog.Product{}, false
	}
	return p, true
}

// clientStore returns the guest's client-local store. Signed-in viewers never
// touch it, so it is only bound to cookies for guests.
func (s *Server) clientStore(w http.ResponseWriter, r *http.Request) clientstore.KV {
	if !IdentityFrom(r.Context()).IsGuest() {
		return nil
	}
	return clientstore.NewCookie(w, r, s.cookiePrefix, s.secure)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, core.ErrEmptyItem):
		writeError(w, http.StatusBadRequest, "missing product id")
	default:
		s.log.WithError(err).WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": w.Header().Get(RequestIDHeader),
		}).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) toView(p catalog.Product, res core.ViewResult) ProductView {
	return ProductView{
		Product:      p,
		Category:     s.catalog.CategoryOf(p),
		Price:        res.Quote,
		DisplayPrice: ecom.DisplayPrice(res.Quote.AdjustedPrice),
		Recorded:     res.Recorded,
		Warnings:     res.Warnings,
	}
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// requestMiddleware stamps a request id and logs each request at debug level.
func (s *Server) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start),
		}).Debug("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
