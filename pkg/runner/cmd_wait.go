package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/block/replsafe/pkg/barrier"
	"github.com/block/replsafe/pkg/dbconn"
	"github.com/block/replsafe/pkg/statuslog"
	"github.com/block/replsafe/pkg/utils"
	"github.com/block/replsafe/pkg/waitspec"
	"github.com/google/uuid"
)

// WaitCommand is the `replsafe wait` subcommand: block until every
// replica has caught up per the wait spec, then exit. The exit code
// reflects whether anything at warning level or above was logged.
type WaitCommand struct {
	Replicas     []string `name:"replica" help:"Replica address (host:port). Repeat for multiple replicas; they are polled in the order given." required:""`
	Wait         string   `name:"wait" help:"Wait spec as space-separated key=value tokens, e.g. 'max=5 timeout=300 continue=no'." required:""`
	Username     string   `name:"username" help:"User" optional:"" default:"replsafe"`
	Password     string   `name:"password" help:"Password" optional:"" default:"replsafe"`
	DefaultsFile string   `name:"defaults-file" help:"my.cnf-style file whose [client] section supplies credentials." optional:""`
	LogLevel     string   `name:"log-level" help:"Minimum log level: debug, info, warn, error, fatal." optional:"" default:"info"`
	StatusURL    string   `name:"status-url" help:"HTTP endpoint to receive every log event as a JSON record." optional:""`

	status *statuslog.ExitStatus
}

func (w *WaitCommand) Run() error {
	minLevel, err := statuslog.ParseLevel(w.LogLevel)
	if err != nil {
		return err
	}
	logConfig := statuslog.NewConfig()
	logConfig.MinLevel = minLevel
	if w.StatusURL != "" {
		sender, err := statuslog.NewHTTPSender(w.StatusURL, uuid.New())
		if err != nil {
			return err
		}
		logConfig.Sender = sender
	}
	logger := statuslog.New(logConfig)
	defer func() {
		_ = logger.Close()
	}()
	w.status = logger.ExitStatus()

	spec, err := waitspec.Parse(strings.Fields(w.Wait))
	if err != nil {
		return err
	}

	optionFile, err := dbconn.LoadOptionFile(w.DefaultsFile)
	if err != nil {
		return err
	}
	user, password := w.Username, w.Password
	if optionFile.User != "" {
		user = optionFile.User
	}
	if optionFile.Password != nil {
		password = *optionFile.Password
	}
	replicaSet := dbconn.NewReplicaSet(logger)
	defer utils.CloseAndLog(replicaSet, logger)
	dbConfig := dbconn.NewDBConfig()
	for _, addr := range w.Replicas {
		dsn := fmt.Sprintf("%s:%s@tcp(%s)/", user, password, addr)
		db, err := dbconn.New(dsn, dbConfig)
		if err != nil {
			return err
		}
		replicaSet.Add(addr, db)
	}

	b, err := barrier.New(&barrier.Config{
		Spec:      spec,
		Replicas:  replicaSet.Replicas(),
		LagSource: replicaSet,
		Progress:  barrier.NewLogSink(logger),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if _, err := b.Wait(context.Background()); err != nil {
		logger.Errorf("replica wait failed: %v", err)
		return err
	}
	logger.Infof("all replicas caught up")
	return nil
}

// ExitCode is read by main after Run completes without error, so warnings
// still surface in the process exit code.
func (w *WaitCommand) ExitCode() int {
	if w.status == nil {
		return 0
	}
	return w.status.Code()
}
