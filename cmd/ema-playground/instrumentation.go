package main

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-playground/cmd/ema-playground"

var logger = otelslog.NewLogger(scopeName)
