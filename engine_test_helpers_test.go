package tgAuth

import (
	"strconv"
	"testing"
	"time"

	"github.com/MrEthical07/tgAuth/initdata"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testBotToken = "123456:TEST-BOT-TOKEN"

var testJWTKey = []byte("0123456789abcdef0123456789abcdef")

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Bot.Token = testBotToken
	cfg.JWT.PrivateKey = append([]byte(nil), testJWTKey...)
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr
}

func signedPayload(userID int64, authDate time.Time, extra ...initdata.Field) string {
	fields := []initdata.Field{
		{Key: "query_id", Value: "AAHdF6IQAAAAAN0XohDhrOrc"},
		{Key: "user", Value: `{"id":` + strconv.FormatInt(userID, 10) + `,"first_name":"Ann","username":"ann"}`},
		{Key: "auth_date", Value: strconv.FormatInt(authDate.Unix(), 10)},
	}
	fields = append(fields, extra...)
	return initdata.Encode(fields, testBotToken)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func initdataField(key, value string) initdata.Field {
	return initdata.Field{Key: key, Value: value}
}
