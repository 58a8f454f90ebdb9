package nakama

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/runtime"

	"truco/internal/ports"
	"truco/internal/ports/natsbus"
)

// InitModule wires RPCs and match handlers for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	publisher := resultPublisher(ctx, logger)
	if err := initializer.RegisterMatch(MatchNameTruco, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(publisher), nil
	}); err != nil {
		return err
	}

	logger.Info("Truco Go module loaded.")
	return nil
}

// resultPublisher connects to NATS when truco_nats_url is set in the runtime
// env. Without it, results are dropped.
func resultPublisher(ctx context.Context, logger runtime.Logger) ports.ResultPublisher {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	url := env["truco_nats_url"]
	if url == "" {
		return ports.NopPublisher{}
	}

	nc, err := natsbus.Connect(url, "truco-nakama")
	if err != nil {
		logger.Warn("InitModule: NATS connect to %s failed, results will not be published: %v", url, err)
		return ports.NopPublisher{}
	}
	logger.Info("InitModule: Publishing results to NATS at %s.", url)
	return natsbus.NewPublisher(nc, env["truco_nats_prefix"])
}
