package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/node"
	_ "github.com/cuemby/edo/internal/rpccodec" // registers the "gob" codec
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Wire request/response shapes for each ABI verb. Every field is exported
// so the gob codec (package rpccodec) can encode them; there is
// deliberately no .proto schema behind these — see SPEC_FULL.md's plugin
// section for why.
type (
	fetchRequest    struct{}
	fetchResponse   struct{ Err string }
	setupRequest    struct{}
	setupResponse   struct{ Err string }
	supportsRequest struct {
		Component node.Component
		Kind      string
	}
	supportsResponse struct{ Supported bool }

	createRequest struct {
		Component node.Component
		Addr      string
		Def       node.Wire
	}
	createResponse struct {
		Handle uint64
		Err    string
	}
)

// conn is the thin set of grpc.ClientConn behavior SandboxedPlugin needs,
// narrowed to an interface so tests can substitute an in-process fake
// without spinning up a real listener.
type conn interface {
	Invoke(ctx context.Context, method string, args, reply interface{}, opts ...grpc.CallOption) error
	Close() error
}

// SandboxedPlugin is the host-side adapter for an out-of-process plugin:
// every call is serialized by mu and forwarded as a single gRPC unary RPC
// using the "gob" content subtype, keeping the plugin boundary free of any
// protobuf code generation step.
type SandboxedPlugin struct {
	name string
	cc   conn

	mu sync.Mutex
}

// DialSandboxed connects to a plugin listening on a Unix domain socket at
// socketPath. name identifies the plugin in GuestError messages.
func DialSandboxed(ctx context.Context, name, socketPath string) (*SandboxedPlugin, error) {
	cc, err := grpc.NewClient(
		"unix:"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype("gob")),
	)
	if err != nil {
		return nil, fmt.Errorf("plugin: dialing %s: %w", name, err)
	}
	return &SandboxedPlugin{name: name, cc: cc}, nil
}

const abiService = "/edo.plugin.ABI/"

func (p *SandboxedPlugin) call(ctx context.Context, method string, req, resp interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cc.Invoke(ctx, abiService+method, req, resp)
}

func (p *SandboxedPlugin) Fetch(ctx context.Context) error {
	var resp fetchResponse
	if err := p.call(ctx, "Fetch", &fetchRequest{}, &resp); err != nil {
		return err
	}
	return guestErr(p.name, resp.Err)
}

func (p *SandboxedPlugin) Setup(ctx context.Context) error {
	var resp setupResponse
	if err := p.call(ctx, "Setup", &setupRequest{}, &resp); err != nil {
		return err
	}
	return guestErr(p.name, resp.Err)
}

func (p *SandboxedPlugin) Supports(component node.Component, kind string) bool {
	var resp supportsResponse
	req := &supportsRequest{Component: component, Kind: kind}
	if err := p.call(context.Background(), "Supports", req, &resp); err != nil {
		return false
	}
	return resp.Supported
}

// createHandle performs the common "Create*" RPC shape: send the
// definition, get back an opaque remote handle identifying the capability
// the guest constructed, which further per-call RPCs (not modeled in
// detail here) would reference.
func (p *SandboxedPlugin) createHandle(ctx context.Context, component node.Component, a addr.Addr, def *node.Node) (uint64, error) {
	req := &createRequest{Component: component, Addr: a.String(), Def: node.ToWire(def)}
	var resp createResponse
	method := map[node.Component]string{
		node.ComponentStorageBackend: "CreateStorage",
		node.ComponentEnvironment:    "CreateFarm",
		node.ComponentSource:         "CreateSource",
		node.ComponentTransform:      "CreateTransform",
		node.ComponentVendor:         "CreateVendor",
	}[component]
	if err := p.call(ctx, method, req, &resp); err != nil {
		return 0, err
	}
	if resp.Err != "" {
		return 0, guestErr(p.name, resp.Err)
	}
	return resp.Handle, nil
}

func guestErr(plugin, msg string) error {
	if msg == "" {
		return nil
	}
	return &GuestError{Plugin: plugin, Message: msg}
}

// Close releases the underlying connection.
func (p *SandboxedPlugin) Close() error { return p.cc.Close() }
