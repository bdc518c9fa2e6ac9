// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package plugin

import (
	"context"
	"net/rpc"
	"os/exec"
	"sync"

	"github.com/deckport/deckport/internal/render"
	deckerr "github.com/deckport/deckport/pkg/errors"
	goplugin "github.com/hashicorp/go-plugin"
)

const (
	protocolVersion = 1
	magicCookieKey  = "DECKPORT_PLUGIN"
	magicCookieVal  = "646563-6b706f7274"

	rendererKey = "renderer"
)

// HandshakeConfig is the handshake every plugin binary must complete
// before it is trusted to serve the renderer contract.
func HandshakeConfig() goplugin.HandshakeConfig {
	return goplugin.HandshakeConfig{
		ProtocolVersion:  protocolVersion,
		MagicCookieKey:   magicCookieKey,
		MagicCookieValue: magicCookieVal,
	}
}

// Serve runs p as a plugin binary. Plugin main functions call this and
// nothing else.
func Serve(p render.Provider) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: HandshakeConfig(),
		Plugins: map[string]goplugin.Plugin{
			rendererKey: &rendererPlugin{impl: p},
		},
	})
}

// CleanupClients kills every plugin subprocess this host started. Called
// once on process exit.
func CleanupClients() {
	goplugin.CleanupClients()
}

// Wire types. net/rpc with gob needs exported structs on both sides;
// the renderer job and capability types encode as-is.

type RPCError struct {
	Code    string
	Message string
}

func encodeErr(err error) *RPCError {
	if err == nil {
		return nil
	}
	return &RPCError{Code: string(deckerr.CodeOf(err)), Message: err.Error()}
}

func (e *RPCError) decode(provider string) error {
	if e == nil {
		return nil
	}
	code := deckerr.Code(e.Code)
	if code == "" {
		code = deckerr.CodeBackendCrashed
	}
	return deckerr.New(code, e.Message, deckerr.FieldProvider(provider))
}

type CapabilitiesReply struct {
	Capability render.Capability
}

type ProbeReply struct {
	OK bool
}

type RenderDocumentArgs struct {
	Job render.Job
}

type RenderDocumentReply struct {
	Path string
	Err  *RPCError
}

type RenderImagesArgs struct {
	Job render.Job
}

type RenderImagesReply struct {
	Paths []string
	Err   *RPCError
}

// rendererServer adapts a provider implementation to net/rpc inside the
// plugin process. Cancellation is process-level: when the host's
// deadline fires it kills the subprocess.
type rendererServer struct {
	impl render.Provider
}

func (s *rendererServer) Capabilities(_ struct{}, reply *CapabilitiesReply) error {
	reply.Capability = s.impl.Capabilities()
	return nil
}

func (s *rendererServer) Probe(_ struct{}, reply *ProbeReply) error {
	reply.OK = s.impl.Probe(context.Background())
	return nil
}

func (s *rendererServer) RenderDocument(args RenderDocumentArgs, reply *RenderDocumentReply) error {
	path, err := s.impl.RenderDocument(context.Background(), args.Job)
	reply.Path = path
	reply.Err = encodeErr(err)
	return nil
}

func (s *rendererServer) RenderImages(args RenderImagesArgs, reply *RenderImagesReply) error {
	paths, err := s.impl.RenderImages(context.Background(), args.Job)
	reply.Paths = paths
	reply.Err = encodeErr(err)
	return nil
}

// rendererPlugin is the go-plugin glue for both sides of the connection.
type rendererPlugin struct {
	impl render.Provider
}

func (p *rendererPlugin) Server(*goplugin.MuxBroker) (interface{}, error) {
	return &rendererServer{impl: p.impl}, nil
}

func (p *rendererPlugin) Client(_ *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &rendererRPC{client: c}, nil
}

type rendererRPC struct {
	client *rpc.Client
}

// Client is the host-side provider backed by a plugin subprocess. The
// subprocess starts lazily on first use and is killed when a call's
// context expires, on Close, or by CleanupClients at exit.
type Client struct {
	name    string
	version string
	vendor  string

	mu     sync.Mutex
	plugin *goplugin.Client
	rpc    *rendererRPC
	caps   *render.Capability

	newPluginClient func() *goplugin.Client
}

var _ render.Provider = (*Client)(nil)

// NewClient wraps the plugin binary described by m as a provider.
func NewClient(m *Manifest, binaryPath string) *Client {
	return &Client{
		name:    m.Name,
		version: m.Version,
		vendor:  m.Vendor,
		newPluginClient: func() *goplugin.Client {
			return goplugin.NewClient(&goplugin.ClientConfig{
				HandshakeConfig: HandshakeConfig(),
				Plugins: map[string]goplugin.Plugin{
					rendererKey: &rendererPlugin{},
				},
				Cmd: exec.Command(binaryPath),
			})
		},
	}
}

func (c *Client) Name() string { return c.name }

// Capabilities fetches the plugin's descriptor once and caches it. A
// plugin that cannot be reached reports only its manifest identity; the
// unknown headless posture then excludes it on headless hosts.
func (c *Client) Capabilities() render.Capability {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.caps != nil {
		return *c.caps
	}

	fallback := render.Capability{Vendor: c.vendor, Version: c.version}

	rc, err := c.dialLocked()
	if err != nil {
		return fallback
	}
	var reply CapabilitiesReply
	if err := rc.client.Call("Plugin.Capabilities", struct{}{}, &reply); err != nil {
		return fallback
	}

	caps := reply.Capability
	if caps.Version == "" {
		caps.Version = c.version
	}
	if caps.Vendor == "" {
		caps.Vendor = c.vendor
	}
	c.caps = &caps
	return caps
}

func (c *Client) Probe(ctx context.Context) bool {
	var reply ProbeReply
	err := c.call(ctx, "Plugin.Probe", struct{}{}, &reply)
	return err == nil && reply.OK
}

func (c *Client) RenderDocument(ctx context.Context, job render.Job) (string, error) {
	var reply RenderDocumentReply
	if err := c.call(ctx, "Plugin.RenderDocument", RenderDocumentArgs{Job: job}, &reply); err != nil {
		return "", err
	}
	if err := reply.Err.decode(c.name); err != nil {
		return "", err
	}
	return reply.Path, nil
}

func (c *Client) RenderImages(ctx context.Context, job render.Job) ([]string, error) {
	var reply RenderImagesReply
	if err := c.call(ctx, "Plugin.RenderImages", RenderImagesArgs{Job: job}, &reply); err != nil {
		return nil, err
	}
	if err := reply.Err.decode(c.name); err != nil {
		return nil, err
	}
	return reply.Paths, nil
}

// Close kills the plugin subprocess. The client dials again on next use.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.killLocked()
}

// call dispatches one RPC and races it against ctx. net/rpc carries no
// deadline, so expiry is enforced by killing the subprocess, which fails
// the in-flight call.
func (c *Client) call(ctx context.Context, method string, args, reply any) error {
	c.mu.Lock()
	rc, err := c.dialLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- rc.client.Call(method, args, reply)
	}()

	select {
	case <-ctx.Done():
		c.Close()
		<-done
		if ctx.Err() == context.DeadlineExceeded {
			return deckerr.New(deckerr.CodeTimeout, "plugin call exceeded its deadline",
				deckerr.FieldProvider(c.name))
		}
		return deckerr.New(deckerr.CodeTimeout, "plugin call cancelled",
			deckerr.FieldProvider(c.name))
	case err := <-done:
		if err != nil {
			c.mu.Lock()
			c.killLocked()
			c.mu.Unlock()
			return deckerr.Wrap(err, deckerr.CodeBackendCrashed, "plugin call failed",
				deckerr.FieldProvider(c.name))
		}
		return nil
	}
}

func (c *Client) dialLocked() (*rendererRPC, error) {
	if c.rpc != nil {
		return c.rpc, nil
	}

	pc := c.newPluginClient()
	proto, err := pc.Client()
	if err != nil {
		pc.Kill()
		return nil, deckerr.Wrap(err, deckerr.CodePluginHandshakeFailure,
			"plugin handshake failed", deckerr.FieldProvider(c.name))
	}
	raw, err := proto.Dispense(rendererKey)
	if err != nil {
		pc.Kill()
		return nil, deckerr.Wrap(err, deckerr.CodePluginHandshakeFailure,
			"plugin did not serve the renderer contract", deckerr.FieldProvider(c.name))
	}
	rc, ok := raw.(*rendererRPC)
	if !ok {
		pc.Kill()
		return nil, deckerr.New(deckerr.CodePluginHandshakeFailure,
			"plugin served an unexpected contract", deckerr.FieldProvider(c.name))
	}

	c.plugin = pc
	c.rpc = rc
	return rc, nil
}

func (c *Client) killLocked() {
	if c.plugin != nil {
		c.plugin.Kill()
	}
	c.plugin = nil
	c.rpc = nil
}
