package echo

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/koscakluka/ema-playground/core/echo"

var logger = otelslog.NewLogger(scopeName)
