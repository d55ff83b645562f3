package plugin

import (
	"context"
	"errors"

	"github.com/fwdask/fwdask/internal/plugin"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/recorder"
	"github.com/go-gost/plugin/recorder/proto"
	"google.golang.org/grpc"
)

var ErrRejected = errors.New("recorder plugin rejected the record")

type grpcPlugin struct {
	conn    *grpc.ClientConn
	client  proto.RecorderClient
	options plugin.Options
	log     logger.Logger
}

// NewGRPCPlugin creates a Recorder that forwards each decision record to a
// remote recorder service. An unusable address yields a recorder that drops
// everything.
func NewGRPCPlugin(name string, addr string, opts ...plugin.Option) recorder.Recorder {
	p := &grpcPlugin{
		options: plugin.NewOptions(opts...),
		log: logger.Default().WithFields(map[string]any{
			"kind":     "recorder",
			"recorder": name,
			"plugin":   plugin.GRPC,
		}),
	}

	conn, err := plugin.DialGRPC(addr, &p.options)
	if err != nil {
		p.log.Errorf("dial %s: %v", addr, err)
		return p
	}
	p.conn = conn
	p.client = proto.NewRecorderClient(conn)
	return p
}

func (p *grpcPlugin) Record(ctx context.Context, b []byte) error {
	if p.client == nil || len(b) == 0 {
		return nil
	}

	ctx, cancel := p.options.WithTimeout(ctx)
	defer cancel()

	reply, err := p.client.Record(ctx, &proto.RecordRequest{Data: b})
	if err != nil {
		p.log.Error(err)
		return err
	}
	if !reply.GetOk() {
		return ErrRejected
	}
	return nil
}

func (p *grpcPlugin) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
