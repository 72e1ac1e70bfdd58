// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_agent_tool

import (
	"context"
	"sort"
	"time"

	internal_commerce "github.com/cartlineai/api/assistant-api/internal/commerce"
	internal_nlu "github.com/cartlineai/api/assistant-api/internal/nlu"
	internal_retrieval "github.com/cartlineai/api/assistant-api/internal/retrieval"
	"github.com/cartlineai/pkg/commons"
)

// Call is the turn context handed to a tool: the classified intent, the raw
// utterance, the extracted entity map and the immutable store identity of the
// session. Store is the profile key used in every retrieval filter; Caller is
// the phone number the call arrived from.
type Call struct {
	Intent       string
	Query        string
	Entities     internal_nlu.Entities
	Store        string
	StoreName    string
	StoreDetails string
	Caller       string
}

// Result is the context block a tool produces for the responder. Business
// outcomes the caller should hear about (order not found, update refused) are
// rendered into Content; a tool only returns an error when it could not reach
// its backend at all.
type Result struct {
	Content string
}

// ToolCaller executes one intent's data work. Name doubles as the intent
// label the registry dispatches on.
type ToolCaller interface {
	Name() string
	Call(ctx context.Context, call *Call) (*Result, error)
}

// Registry holds the local tools for one call session. It is built per
// session because the commerce client is scoped to the store the call
// arrived on.
type Registry struct {
	logger commons.Logger
	tools  map[string]ToolCaller
}

// NewRegistry wires the standard tool set against the session's commerce
// client and the shared searcher.
func NewRegistry(logger commons.Logger, searcher internal_retrieval.Searcher, commerce internal_commerce.Client) *Registry {
	registry := &Registry{
		logger: logger,
		tools:  map[string]ToolCaller{},
	}
	registry.Register(NewProductTool(logger, searcher))
	registry.Register(NewOrderTool(logger, commerce))
	registry.Register(NewUpdateOrderTool(logger, commerce))
	registry.Register(NewCancelOrderTool(logger, commerce))
	registry.Register(NewStoreInfoTool(logger, searcher))
	return registry
}

func (r *Registry) Register(tool ToolCaller) {
	r.tools[tool.Name()] = tool
}

// Tools returns the registered tool names in stable order.
func (r *Registry) Tools() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the tool registered for the call's intent. Intents without a
// tool (general chit-chat) return nil so the responder answers from the
// system prompt alone.
func (r *Registry) Dispatch(ctx context.Context, call *Call) (*Result, error) {
	tool, ok := r.tools[call.Intent]
	if !ok {
		return nil, nil
	}

	started := time.Now()
	defer func() {
		r.logger.Benchmark("tool."+tool.Name(), time.Since(started))
	}()

	return tool.Call(ctx, call)
}
