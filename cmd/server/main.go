package main

import (
	"fmt"
	"net/http"

	"github.com/kawilabs/go-kawi/env"
	"github.com/kawilabs/go-kawi/server"
	"github.com/kawilabs/go-kawi/service/logger"
	sentryutil "github.com/kawilabs/go-kawi/service/sentry"
)

func main() {
	defer sentryutil.RecoverAndRaise(nil)

	server.Init()

	port := env.GetInt("PORT")
	logger.For(nil).Infof("listening on :%d", port)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), nil); err != nil {
		logger.For(nil).Fatal(err)
	}
}
