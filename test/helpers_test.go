//go:build integration
// +build integration

package test

import (
	"strconv"
	"testing"
	"time"

	tgAuth "github.com/MrEthical07/tgAuth"
	"github.com/MrEthical07/tgAuth/initdata"
	"github.com/redis/go-redis/v9"
)

const integrationBotToken = "123456:INTEGRATION-TOKEN"

func newIntegrationEngine(t *testing.T, rdb redis.UniversalClient, mutate func(*tgAuth.Config)) *tgAuth.Engine {
	t.Helper()

	cfg := tgAuth.DefaultConfig()
	cfg.Bot.Token = integrationBotToken
	cfg.JWT.PrivateKey = []byte("integration-hs256-key-0123456789ab")
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := tgAuth.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func launchPayload(userID int64, authDate time.Time, chat string) string {
	return initdata.Encode([]initdata.Field{
		{Key: "chat_instance", Value: chat},
		{Key: "user", Value: `{"id":` + strconv.FormatInt(userID, 10) + `,"first_name":"Integration"}`},
		{Key: "auth_date", Value: strconv.FormatInt(authDate.Unix(), 10)},
	}, integrationBotToken)
}
