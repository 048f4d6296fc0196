package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sms-ingress-server/internal/db"
	"sms-ingress-server/internal/models"
	"sms-ingress-server/internal/queue"
	"sms-ingress-server/internal/services"
	"sms-ingress-server/pkg/gsm"
	"sms-ingress-server/pkg/middleware"
	"sms-ingress-server/pkg/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type flowEnv struct {
	router *Router
	redis  *miniredis.Miniredis
	queue  *queue.RedisQueue
	token  string
}

func setupFlow(t *testing.T) *flowEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	database := db.SetupTestDB(t)
	m := miniredis.RunT(t)
	rq := queue.NewRedisQueue(redis.NewClient(&redis.Options{Addr: m.Addr()}), cfg.Queue.Name, cfg.Queue.Prefix)
	t.Cleanup(func() { _ = rq.Close() })

	otp := services.NewOTPService(db.NewOTPRepository(database), utils.NewSecretHasher(bcrypt.MinCost), cfg.OTP.TTL)
	messaging := services.NewMessagingService(
		services.NewSegmenter(cfg.SMS.MaxSegments),
		services.NewQueueService(rq, cfg.Queue.AddTimeout),
		otp,
		nil,
	)

	r, err := NewRouter(Dependencies{
		Config:    cfg,
		Messaging: messaging,
		Checks:    map[string]Pinger{"database": database, "redis": rq},
	})
	require.NoError(t, err)

	token, err := middleware.GenerateToken(testSmscConfig, cfg)
	require.NoError(t, err)

	return &flowEnv{router: r, redis: m, queue: rq, token: token}
}

func (e *flowEnv) post(t *testing.T, path string, body any) (int, utils.APIResponse) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func (e *flowEnv) queuedJob(t *testing.T, id string) models.QueueJob {
	t.Helper()
	var job models.QueueJob
	require.NoError(t, json.Unmarshal([]byte(e.redis.HGet(e.queue.Key(id), "data")), &job))
	return job
}

func TestFlow_A2P(t *testing.T) {
	env := setupFlow(t)

	status, resp := env.post(t, "/api/v2/a2p", map[string]any{
		"to":                 "01812345678",
		"text":               strings.Repeat("a", 200),
		"successCallbackUrl": "https://example.com/ok",
		"expireAt":           time.Now().Add(time.Hour).UnixMilli(),
	})
	require.Equal(t, http.StatusOK, status, resp.Message)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "+8801812345678", data["to"])
	assert.Equal(t, "GSM", data["smsEncoding"])
	assert.Equal(t, float64(2), data["chunks"])

	id := data["messageId"].(string)
	job := env.queuedJob(t, id)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, models.ServiceA2P, job.ServiceType)
	assert.Equal(t, "+8801812345678", job.To)
	assert.Equal(t, testSmscConfig, job.Config)
	assert.Equal(t, "https://example.com/ok", job.SuccessCallbackURL)
	assert.Equal(t, "A2P", env.redis.HGet(env.queue.Key(id), "name"))

	status, resp = env.post(t, "/api/v2/a2p", map[string]any{"to": "01812345678", "text": strings.Repeat("€", 500)})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Message too long for GSM encoding. Max allowed is 918 characters for 6 chunk(s).", resp.Message)
}

func TestFlow_A2P_DecomposedText(t *testing.T) {
	env := setupFlow(t)

	status, resp := env.post(t, "/api/v2/a2p", map[string]any{
		"to":          "+8801812345678",
		"text":        "Cafe\u0301",
		"smsEncoding": "GSM",
	})
	require.Equal(t, http.StatusOK, status, resp.Message)

	job := env.queuedJob(t, resp.Data.(map[string]any)["messageId"].(string))
	assert.Equal(t, models.EncodingGSM, job.SmsEncoding)
	assert.Equal(t, "Caf\u00e9", job.Text)

	septets, ok := gsm.SeptetLength(job.Text)
	assert.True(t, ok, "queued text must be representable in GSM-7")
	assert.Equal(t, 4, septets)
}

func TestFlow_OTP(t *testing.T) {
	env := setupFlow(t)
	const to = "+8801812345678"

	status, resp := env.post(t, "/api/v2/otp", map[string]any{"to": to, "length": 6})
	require.Equal(t, http.StatusOK, status, resp.Message)

	id := resp.Data.(map[string]any)["messageId"].(string)
	job := env.queuedJob(t, id)
	assert.Equal(t, models.ServiceOTP, job.ServiceType)
	code := strings.TrimPrefix(job.Text, "Your verification code is ")
	require.Len(t, code, 6)

	// OTP jobs go to the wait list, served before prioritized A2P jobs
	waiting, err := env.redis.List(env.queue.Key("wait"))
	require.NoError(t, err)
	assert.Equal(t, []string{id}, waiting)

	status, resp = env.post(t, "/api/v2/otp", map[string]any{"to": to})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "OTP_ALREADY_ACTIVE", resp.Code)

	status, resp = env.post(t, "/api/v2/otp/verify", map[string]any{"to": to, "otp": "wrong-code"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid OTP", resp.Message)

	status, resp = env.post(t, "/api/v2/otp/verify", map[string]any{"to": "01812345678", "otp": code})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OTP is valid", resp.Message)

	status, _ = env.post(t, "/api/v2/otp/verify", map[string]any{"to": to, "otp": code})
	assert.Equal(t, http.StatusBadRequest, status)

	// Consumed codes free the key
	status, _ = env.post(t, "/api/v2/otp", map[string]any{"to": to})
	assert.Equal(t, http.StatusOK, status)
}

func TestFlow_BrokerDown(t *testing.T) {
	env := setupFlow(t)
	env.redis.Close()

	status, resp := env.post(t, "/api/v2/a2p", map[string]any{"to": "+8801812345678", "text": "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "Failed to process message, try again later", resp.Message)

	// The failed OTP send does not block a retry once the broker is back
	status, _ = env.post(t, "/api/v2/otp", map[string]any{"to": "+8801812345678"})
	assert.Equal(t, http.StatusServiceUnavailable, status)

	require.NoError(t, env.redis.Restart())
	status, resp = env.post(t, "/api/v2/otp", map[string]any{"to": "+8801812345678"})
	assert.Equal(t, http.StatusOK, status, resp.Message)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
