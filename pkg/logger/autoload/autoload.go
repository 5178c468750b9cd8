package autoload

import (
	configx "github.com/sanmarzano/orderbot/pkg/config"
	logx "github.com/sanmarzano/orderbot/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
