package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/fieldserve/tradebill/internal/config"
	"github.com/fieldserve/tradebill/internal/logger"
	"github.com/fieldserve/tradebill/internal/migration"
	"github.com/fieldserve/tradebill/internal/server"
	"github.com/fieldserve/tradebill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
