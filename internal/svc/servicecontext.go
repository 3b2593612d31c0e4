package svc

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"tradegate/internal/config"
	"tradegate/internal/repo"
	"tradegate/pkg/bracket"
	"tradegate/pkg/confkit"
	exchangepkg "tradegate/pkg/exchange"
	_ "tradegate/pkg/exchange/binance"
	_ "tradegate/pkg/exchange/hyperliquid"
	_ "tradegate/pkg/exchange/sim"
	executorpkg "tradegate/pkg/executor"
	"tradegate/pkg/journal"
)

// fallbackGateway is registered when no exchange section is configured.
const fallbackGateway = "sim"

type ServiceContext struct {
	Config config.Config

	ExchangeConfig *exchangepkg.Config
	ExecutorConfig *executorpkg.Config
	Gateways       map[string]exchangepkg.Gateway
	DefaultGateway string
	Engines        map[string]*executorpkg.Engine
	Brackets       map[string]*bracket.Orchestrator

	Journal  *journal.Writer
	Recorder executorpkg.Recorder

	// Optional DB wiring, only when a DSN is provided.
	DBConn sqlx.SqlConn
	Repos  *repo.Set
}

// NewServiceContext builds the service context and exits the process on error.
func NewServiceContext(c config.Config, mainConfigPath string) *ServiceContext {
	svc, err := New(c, mainConfigPath)
	logx.Must(err)
	return svc
}

// New builds gateways, engines and recorders from c.
func New(c config.Config, mainConfigPath string) (*ServiceContext, error) {
	svc := &ServiceContext{
		Config:   c,
		Engines:  make(map[string]*executorpkg.Engine),
		Brackets: make(map[string]*bracket.Orchestrator),
	}
	baseDir := confkit.BaseDir(mainConfigPath)

	executorCfg := c.Executor.Value
	if executorCfg == nil && c.Executor.File != "" {
		loaded, err := executorpkg.LoadConfig(confkit.ResolvePath(baseDir, c.Executor.File))
		if err != nil {
			return nil, fmt.Errorf("load executor config: %w", err)
		}
		executorCfg = loaded
	}
	if executorCfg == nil {
		executorCfg = executorpkg.DefaultConfig()
	}
	svc.ExecutorConfig = executorCfg

	exchangeCfg := c.Exchange.Value
	if exchangeCfg == nil && c.Exchange.File != "" {
		loaded, err := exchangepkg.LoadConfig(confkit.ResolvePath(baseDir, c.Exchange.File))
		if err != nil {
			return nil, fmt.Errorf("load exchange config: %w", err)
		}
		exchangeCfg = loaded
	}
	if exchangeCfg == nil {
		exchangeCfg = &exchangepkg.Config{
			Default:  fallbackGateway,
			Gateways: map[string]*exchangepkg.GatewayEntry{fallbackGateway: {Type: string(exchangepkg.VariantSim)}},
		}
	}
	applyEnvironment(c, exchangeCfg)
	svc.ExchangeConfig = exchangeCfg

	if c.Postgres.DSN != "" {
		db, err := sql.Open("pgx", c.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(c.Postgres.MaxOpen)
		db.SetMaxIdleConns(c.Postgres.MaxIdle)
		svc.DBConn = sqlx.NewSqlConnFromDB(db)
		repos, err := repo.New(repo.Dependencies{DBConn: svc.DBConn})
		if err != nil {
			return nil, err
		}
		svc.Repos = repos
	}

	var recorders executorpkg.MultiRecorder
	if c.Journal.Dir != "" {
		svc.Journal = journal.NewWriter(c.Journal.Dir)
		recorders = append(recorders, svc.Journal)
	}
	if svc.Repos != nil {
		recorders = append(recorders, svc.Repos.Executions)
	}
	if len(recorders) > 0 {
		svc.Recorder = recorders
	}

	gateways, err := exchangeCfg.BuildGateways()
	if err != nil {
		return nil, fmt.Errorf("build exchange gateways: %w", err)
	}
	svc.Gateways = gateways
	svc.DefaultGateway = exchangeCfg.DefaultName()

	for name, gw := range gateways {
		opts := []executorpkg.Option{}
		if svc.Recorder != nil {
			opts = append(opts, executorpkg.WithRecorder(svc.Recorder))
		}
		engine, err := executorpkg.NewEngine(gw, executorCfg, opts...)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("gateway %s: %w", name, err)
		}
		orchestrator, err := bracket.New(engine, bracket.WithValidation())
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("gateway %s: %w", name, err)
		}
		svc.Engines[name] = engine
		svc.Brackets[name] = orchestrator
	}

	logx.Infof("service context ready: env=%s gateways=%s default=%s", c.Env, strings.Join(svc.GatewayNames(), ","), svc.DefaultGateway)
	return svc, nil
}

// applyEnvironment forces every gateway onto testnet in the test env.
func applyEnvironment(c config.Config, exchangeCfg *exchangepkg.Config) {
	if !c.IsTestEnv() {
		return
	}
	for _, entry := range exchangeCfg.Gateways {
		if entry != nil {
			entry.Testnet = true
		}
	}
}

// ErrUnknownGateway is returned by Resolve for names not in the config.
var ErrUnknownGateway = errors.New("unknown gateway")

// Resolve returns the engine and bracket orchestrator for name, or for the
// default gateway when name is empty.
func (s *ServiceContext) Resolve(name string) (*executorpkg.Engine, *bracket.Orchestrator, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.DefaultGateway
	}
	if name == "" {
		return nil, nil, fmt.Errorf("%w: no default gateway configured", ErrUnknownGateway)
	}
	engine, ok := s.Engines[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w %q", ErrUnknownGateway, name)
	}
	return engine, s.Brackets[name], nil
}

// GatewayNames lists configured gateways in name order.
func (s *ServiceContext) GatewayNames() []string {
	names := make([]string, 0, len(s.Gateways))
	for name := range s.Gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases every gateway and the database handle.
func (s *ServiceContext) Close() {
	for name, gw := range s.Gateways {
		if err := gw.Close(); err != nil {
			logx.Errorf("close gateway %s: %v", name, err)
		}
	}
	if s.DBConn != nil {
		if db, err := s.DBConn.RawDB(); err == nil {
			_ = db.Close()
		}
	}
}
