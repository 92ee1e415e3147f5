// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/luxfi/math/set"
)

var (
	errUnknownBaseURL  = errors.New("unknown base url")
	errUnknownEndpoint = errors.New("unknown endpoint")
	errAlreadyReserved = errors.New("route is either already aliased or already maps to a handle")
)

type router struct {
	lock   sync.RWMutex
	router *mux.Router

	// Maps url -> endpoints
	routes   map[string]map[string]http.Handler
	reserved set.Set[string]
}

func newRouter() *router {
	return &router{
		router:   mux.NewRouter(),
		routes:   make(map[string]map[string]http.Handler),
		reserved: set.NewSet[string](0),
	}
}

func (r *router) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	r.router.ServeHTTP(writer, request)
}

func (r *router) AddRouter(base, endpoint string, handler http.Handler) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.addRouter(base, endpoint, handler)
}

func (r *router) addRouter(base, endpoint string, handler http.Handler) error {
	if r.reserved.Contains(base) {
		return fmt.Errorf("%w: %s", errAlreadyReserved, base)
	}
	return r.forceAddRouter(base, endpoint, handler)
}

func (r *router) forceAddRouter(base, endpoint string, handler http.Handler) error {
	endpoints := r.routes[base]
	if endpoints == nil {
		endpoints = make(map[string]http.Handler)
	}
	url := base + endpoint
	if _, exists := endpoints[endpoint]; exists {
		return fmt.Errorf("failed to create endpoint as %s already exists", url)
	}

	endpoints[endpoint] = handler
	r.routes[base] = endpoints

	// Name routes based on their URL for easy retrieval in the future
	route := r.router.Handle(url, handler)
	if route == nil {
		return fmt.Errorf("failed to create new route for %s", url)
	}
	route.Name(url)
	return route.GetError()
}

// AddAlias serves every endpoint of base under each alias as well.
func (r *router) AddAlias(base string, aliases ...string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, alias := range aliases {
		if r.reserved.Contains(alias) {
			return fmt.Errorf("%w: %s", errAlreadyReserved, alias)
		}
		if _, exists := r.routes[alias]; exists {
			return fmt.Errorf("%w: %s", errAlreadyReserved, alias)
		}
	}

	for _, alias := range aliases {
		r.reserved.Add(alias)
	}

	endpoints, exists := r.routes[base]
	if !exists {
		return fmt.Errorf("%w: %s", errUnknownBaseURL, base)
	}
	for _, alias := range aliases {
		for endpoint, handler := range endpoints {
			if err := r.forceAddRouter(alias, endpoint, handler); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetHandler returns the handler registered for base and endpoint.
func (r *router) GetHandler(base, endpoint string) (http.Handler, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	urlBase, exists := r.routes[base]
	if !exists {
		return nil, fmt.Errorf("%w: %s", errUnknownBaseURL, base)
	}
	handler, exists := urlBase[endpoint]
	if !exists {
		return nil, fmt.Errorf("%w: %s", errUnknownEndpoint, endpoint)
	}
	return handler, nil
}
