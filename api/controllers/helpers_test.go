package controllers

import "github.com/deliotti/tucosto-backend/pkg/config"

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}
