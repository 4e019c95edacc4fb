package tgAuth_test

import (
	"fmt"
	"net/http"
	"time"

	tgAuth "github.com/MrEthical07/tgAuth"
	"github.com/MrEthical07/tgAuth/httpapi"
	"github.com/MrEthical07/tgAuth/initdata"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ExampleNew demonstrates engine construction with production-style dependencies.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	logger, _ := zap.NewProduction()

	cfg := tgAuth.DefaultConfig()
	cfg.Bot.Token = "123456:BOT-TOKEN"
	cfg.JWT.PrivateKey = []byte("replace-with-32-random-bytes-here")
	cfg.Admin.UserIDs = []int64{1}

	engine, _ := tgAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(logger).
		Build()

	_ = http.ListenAndServe(":8080", httpapi.NewRouter(engine, httpapi.Options{Logger: logger}))
}

// ExampleVerifyInitData verifies a payload without any backend.
func ExampleVerifyInitData() {
	fields := []initdata.Field{
		{Key: "auth_date", Value: "1700000000"},
		{Key: "user", Value: `{"id":123,"first_name":"A"}`},
	}
	raw := initdata.Encode(fields, "TESTTOKEN")

	identity, security, err := tgAuth.VerifyInitData(raw, "TESTTOKEN", 5*time.Minute, time.Unix(1_700_000_030, 0))
	if err != nil {
		fmt.Println(tgAuth.ReasonCode(err))
		return
	}
	fmt.Println(identity.ID, security.AgeSeconds)
	// Output: 123 30
}
