package svc

import (
	"log"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"bitdo/internal/config"
	"bitdo/internal/model"
	"bitdo/pkg/convert"
	exchangepkg "bitdo/pkg/exchange"
	_ "bitdo/pkg/exchange/bittrex"
	_ "bitdo/pkg/exchange/coinbase"
	_ "bitdo/pkg/exchange/mock"
	_ "bitdo/pkg/exchange/wallex"
	holdingspkg "bitdo/pkg/holdings"
)

type ServiceContext struct {
	Config config.Config

	Exchanges   []*exchangepkg.Exchange
	Conversions *convert.Resolver
	Holdings    *holdingspkg.Service

	// Only present when a Postgres DSN is configured.
	DBConn    sqlx.SqlConn
	Snapshots model.HoldingSnapshotsModel
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{Config: c}

	if c.Exchange.Value == nil {
		log.Fatalf("no exchange configuration loaded; set Exchange.File in the main config")
	}
	exchanges, err := exchangepkg.CreateFromConfig(c.Exchange.Value, c.ExchangeOptions())
	if err != nil {
		log.Fatalf("failed to build exchanges: %v", err)
	}
	svc.Exchanges = exchanges
	svc.Holdings = holdingspkg.New(exchanges, holdingspkg.Config{AllOrFail: c.AllOrFail})
	svc.Conversions = svc.Holdings.Resolver()

	if c.Postgres.DSN != "" {
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		svc.DBConn = conn
		svc.Snapshots = model.NewHoldingSnapshotsModel(conn)
	}
	return svc
}
