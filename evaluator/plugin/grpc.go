package plugin

import (
	"context"
	"io"
	"net"
	"strconv"

	"github.com/fwdask/fwdask/evaluator"
	"github.com/fwdask/fwdask/flow"
	"github.com/fwdask/fwdask/internal/plugin"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/store"
	"github.com/go-gost/plugin/admission/proto"
	"google.golang.org/grpc"
)

const (
	DefaultConfidence = 80
)

// fallback is the opinion of a plugin that cannot be reached.
var fallback = evaluator.Opinion{WantsFlow: false, Confidence: 0}

type grpcPlugin struct {
	conn    grpc.ClientConnInterface
	client  proto.AdmissionClient
	options plugin.Options
	log     logger.Logger
}

// NewGRPCPlugin creates an Evaluator backed by a remote admission service.
// The flow source address is submitted; an admitted address yields an accepting
// opinion and a refused one a rejecting opinion, both with the configured confidence.
func NewGRPCPlugin(name string, addr string, opts ...plugin.Option) evaluator.Evaluator {
	options := plugin.NewOptions(opts...)
	if options.Confidence <= 0 || options.Confidence > 100 {
		options.Confidence = DefaultConfidence
	}

	log := logger.Default().WithFields(map[string]any{
		"kind":      "evaluator",
		"evaluator": name,
	})
	conn, err := plugin.DialGRPC(addr, &options)
	if err != nil {
		log.Error(err)
	}

	p := &grpcPlugin{
		options: options,
		log:     log,
	}
	if conn != nil {
		p.conn = conn
		p.client = proto.NewAdmissionClient(conn)
	}
	return p
}

func (p *grpcPlugin) Opine(ctx context.Context, f *flow.Flow, r store.Reader) evaluator.Opinion {
	if p.client == nil {
		return fallback
	}

	ctx, cancel := p.options.WithTimeout(ctx)
	defer cancel()

	resp, err := p.client.Admit(ctx,
		&proto.AdmissionRequest{
			Addr: sourceAddr(f),
		})
	if err != nil {
		p.log.Error(err)
		return fallback
	}
	return evaluator.Opinion{
		WantsFlow:  resp.Ok,
		Confidence: p.options.Confidence,
	}
}

func (p *grpcPlugin) Close() error {
	if closer, ok := p.conn.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func sourceAddr(f *flow.Flow) string {
	if !f.SupportsNetworkInspection() {
		return f.SourceMac
	}
	if f.SupportsTransportInspection() && f.TransportSource > 0 {
		return net.JoinHostPort(f.NetSource, strconv.Itoa(f.TransportSource))
	}
	return f.NetSource
}
