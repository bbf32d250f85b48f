// Package rpc defines the wire types and net/rpc server/client shims
// that let a connector.Connector live in a separate OS process,
// dispensed through hashicorp/go-plugin. Each Connector method gets a
// matching Args/Reply pair; the Server wraps a live connector.Connector
// and the Client reconstructs one from an *rpc.Client handle.
//
// This uses go-plugin's classic net/rpc transport rather than its gRPC
// transport, since a Connector's method set is small and static enough
// that a protobuf toolchain step buys nothing over plain gob structs -
// this mirrors go-plugin's own "basic" example plugin shape.
package rpc

import (
	"context"
	"net/rpc"

	"github.com/autoschematic-sh/autoschematic/internal/connector"
	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

// FilterArgs / FilterReply and friends below are the wire
// representations of each Connector method. They are plain
// gob-encodable structs; no generated code is involved.

type FilterArgs struct{ Addr string }
type FilterReply struct{ Response connector.FilterResponse }

type ListArgs struct{ Subpath string }
type ListReply struct{ Paths []string }

type SubpathsReply struct{ Paths []string }

type GetArgs struct{ Addr string }
type GetReply struct {
	Present bool
	Bytes   []byte
}

type PlanArgs struct {
	Addr             string
	Current, Desired []byte
}
type PlanReply struct{ Ops []connector.OpPlanOutput }

type OpExecArgs struct {
	Addr string
	Op   string
}
type OpExecReply struct{ Output connector.OpExecOutput }

type AddrVirtToPhyArgs struct{ Addr string }
type AddrVirtToPhyReply struct{ Result connector.VirtToPhyResult }

type AddrPhyToVirtArgs struct{ Addr string }
type AddrPhyToVirtReply struct {
	Virt    string
	Present bool
}

type EqArgs struct {
	Addr string
	A, B []byte
}
type EqReply struct{ Equal bool }

type DiagArgs struct {
	Addr string
	Body []byte
}
type DiagReply struct {
	Present  bool
	Response connector.DiagnosticResponse
}

type GetSkeletonsReply struct{ Skeletons []connector.SkeletonOutput }

type GetDocstringArgs struct {
	Addr  string
	Ident connector.DocIdent
}
type GetDocstringReply struct {
	Present bool
	Output  connector.GetDocOutput
}

type TaskExecArgs struct {
	Addr             string
	Body, Arg, State []byte
}
type TaskExecReply struct{ Response connector.TaskExecResponse }

type UnbundleArgs struct {
	Addr   string
	Bundle []byte
}
type UnbundleReply struct{ Elements []connector.UnbundleElement }

type VersionReply struct{ Version string }

// Server adapts a live connector.Connector to net/rpc's calling
// convention: every exported method takes (args, reply *T) and returns
// error, as net/rpc requires.
type Server struct {
	Impl connector.Connector
}

func (s *Server) Init(args struct{}, reply *struct{}) error {
	return s.Impl.Init(context.Background())
}

func (s *Server) Version(args struct{}, reply *VersionReply) error {
	v, err := s.Impl.Version(context.Background())
	reply.Version = v
	return err
}

func (s *Server) Filter(args FilterArgs, reply *FilterReply) error {
	resp, err := s.Impl.Filter(context.Background(), args.Addr)
	reply.Response = resp
	return err
}

func (s *Server) List(args ListArgs, reply *ListReply) error {
	paths, err := s.Impl.List(context.Background(), args.Subpath)
	reply.Paths = paths
	return err
}

func (s *Server) Subpaths(args struct{}, reply *SubpathsReply) error {
	paths, err := s.Impl.Subpaths(context.Background())
	reply.Paths = paths
	return err
}

func (s *Server) Get(args GetArgs, reply *GetReply) error {
	out, err := s.Impl.Get(context.Background(), args.Addr)
	if err != nil {
		return err
	}
	if out != nil {
		reply.Present = true
		reply.Bytes = out.Bytes
	}
	return nil
}

func (s *Server) Plan(args PlanArgs, reply *PlanReply) error {
	ops, err := s.Impl.Plan(context.Background(), args.Addr, args.Current, args.Desired)
	reply.Ops = ops
	return err
}

func (s *Server) OpExec(args OpExecArgs, reply *OpExecReply) error {
	out, err := s.Impl.OpExec(context.Background(), args.Addr, args.Op)
	reply.Output = out
	return err
}

func (s *Server) AddrVirtToPhy(args AddrVirtToPhyArgs, reply *AddrVirtToPhyReply) error {
	res, err := s.Impl.AddrVirtToPhy(context.Background(), args.Addr)
	reply.Result = res
	return err
}

func (s *Server) AddrPhyToVirt(args AddrPhyToVirtArgs, reply *AddrPhyToVirtReply) error {
	virt, ok, err := s.Impl.AddrPhyToVirt(context.Background(), args.Addr)
	reply.Virt = virt
	reply.Present = ok
	return err
}

func (s *Server) Eq(args EqArgs, reply *EqReply) error {
	eq, err := s.Impl.Eq(context.Background(), args.Addr, args.A, args.B)
	reply.Equal = eq
	return err
}

func (s *Server) Diag(args DiagArgs, reply *DiagReply) error {
	resp, err := s.Impl.Diag(context.Background(), args.Addr, args.Body)
	if err != nil {
		return err
	}
	if resp != nil {
		reply.Present = true
		reply.Response = *resp
	}
	return nil
}

func (s *Server) GetSkeletons(args struct{}, reply *GetSkeletonsReply) error {
	sk, err := s.Impl.GetSkeletons(context.Background())
	reply.Skeletons = sk
	return err
}

func (s *Server) GetDocstring(args GetDocstringArgs, reply *GetDocstringReply) error {
	out, err := s.Impl.GetDocstring(context.Background(), args.Addr, args.Ident)
	if err != nil {
		return err
	}
	if out != nil {
		reply.Present = true
		reply.Output = *out
	}
	return nil
}

func (s *Server) TaskExec(args TaskExecArgs, reply *TaskExecReply) error {
	resp, err := s.Impl.TaskExec(context.Background(), args.Addr, args.Body, args.Arg, args.State)
	reply.Response = resp
	return err
}

func (s *Server) Unbundle(args UnbundleArgs, reply *UnbundleReply) error {
	elems, err := s.Impl.Unbundle(context.Background(), args.Addr, args.Bundle)
	reply.Elements = elems
	return err
}

// Client is a connector.Connector backed by an *rpc.Client handle to a
// Server running in another process.
type Client struct {
	rpc *rpc.Client
}

// NewClient wraps an established net/rpc client connection.
func NewClient(c *rpc.Client) *Client { return &Client{rpc: c} }

var _ connector.Connector = (*Client)(nil)

func (c *Client) call(method string, args, reply interface{}) error {
	if err := c.rpc.Call("Plugin."+method, args, reply); err != nil {
		return taxonomy.Wrap(taxonomy.Transport, err, "connector rpc call %s", method)
	}
	return nil
}

func (c *Client) Init(ctx context.Context) error {
	return c.call("Init", struct{}{}, &struct{}{})
}

func (c *Client) Version(ctx context.Context) (string, error) {
	var reply VersionReply
	err := c.call("Version", struct{}{}, &reply)
	return reply.Version, err
}

func (c *Client) Filter(ctx context.Context, addr string) (connector.FilterResponse, error) {
	var reply FilterReply
	err := c.call("Filter", FilterArgs{Addr: addr}, &reply)
	return reply.Response, err
}

func (c *Client) List(ctx context.Context, subpath string) ([]string, error) {
	var reply ListReply
	err := c.call("List", ListArgs{Subpath: subpath}, &reply)
	return reply.Paths, err
}

func (c *Client) Subpaths(ctx context.Context) ([]string, error) {
	var reply SubpathsReply
	err := c.call("Subpaths", struct{}{}, &reply)
	return reply.Paths, err
}

func (c *Client) Get(ctx context.Context, addr string) (*connector.GetResourceOutput, error) {
	var reply GetReply
	if err := c.call("Get", GetArgs{Addr: addr}, &reply); err != nil {
		return nil, err
	}
	if !reply.Present {
		return nil, nil
	}
	return &connector.GetResourceOutput{Bytes: reply.Bytes}, nil
}

func (c *Client) Plan(ctx context.Context, addr string, current, desired []byte) ([]connector.OpPlanOutput, error) {
	var reply PlanReply
	err := c.call("Plan", PlanArgs{Addr: addr, Current: current, Desired: desired}, &reply)
	return reply.Ops, err
}

func (c *Client) OpExec(ctx context.Context, addr string, op string) (connector.OpExecOutput, error) {
	var reply OpExecReply
	err := c.call("OpExec", OpExecArgs{Addr: addr, Op: op}, &reply)
	return reply.Output, err
}

func (c *Client) AddrVirtToPhy(ctx context.Context, addr string) (connector.VirtToPhyResult, error) {
	var reply AddrVirtToPhyReply
	err := c.call("AddrVirtToPhy", AddrVirtToPhyArgs{Addr: addr}, &reply)
	return reply.Result, err
}

func (c *Client) AddrPhyToVirt(ctx context.Context, addr string) (string, bool, error) {
	var reply AddrPhyToVirtReply
	err := c.call("AddrPhyToVirt", AddrPhyToVirtArgs{Addr: addr}, &reply)
	return reply.Virt, reply.Present, err
}

func (c *Client) Eq(ctx context.Context, addr string, a, b []byte) (bool, error) {
	var reply EqReply
	err := c.call("Eq", EqArgs{Addr: addr, A: a, B: b}, &reply)
	return reply.Equal, err
}

func (c *Client) Diag(ctx context.Context, addr string, body []byte) (*connector.DiagnosticResponse, error) {
	var reply DiagReply
	if err := c.call("Diag", DiagArgs{Addr: addr, Body: body}, &reply); err != nil {
		return nil, err
	}
	if !reply.Present {
		return nil, nil
	}
	return &reply.Response, nil
}

func (c *Client) GetSkeletons(ctx context.Context) ([]connector.SkeletonOutput, error) {
	var reply GetSkeletonsReply
	err := c.call("GetSkeletons", struct{}{}, &reply)
	return reply.Skeletons, err
}

func (c *Client) GetDocstring(ctx context.Context, addr string, ident connector.DocIdent) (*connector.GetDocOutput, error) {
	var reply GetDocstringReply
	if err := c.call("GetDocstring", GetDocstringArgs{Addr: addr, Ident: ident}, &reply); err != nil {
		return nil, err
	}
	if !reply.Present {
		return nil, nil
	}
	return &reply.Output, nil
}

func (c *Client) TaskExec(ctx context.Context, addr string, body []byte, arg, state []byte) (connector.TaskExecResponse, error) {
	var reply TaskExecReply
	err := c.call("TaskExec", TaskExecArgs{Addr: addr, Body: body, Arg: arg, State: state}, &reply)
	return reply.Response, err
}

func (c *Client) Unbundle(ctx context.Context, addr string, bundle []byte) ([]connector.UnbundleElement, error) {
	var reply UnbundleReply
	err := c.call("Unbundle", UnbundleArgs{Addr: addr, Bundle: bundle}, &reply)
	return reply.Elements, err
}
