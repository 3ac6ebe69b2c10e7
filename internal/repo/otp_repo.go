package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// One-time codes live in Redis keyed by email and purpose, so a verification
// code can never satisfy a reset check. Codes are consumed on successful
// verification, in the same call as the check, and die after maxOTPAttempts
// bad guesses.
const (
	otpTTL         = 10 * time.Minute
	maxOTPAttempts = 3
)

type otpRecord struct {
	Code     string `json:"code"`
	Attempts int    `json:"attempts"`
}

func otpKey(email, purpose string) string {
	return "otp:" + email + ":" + purpose
}

func (r *Redis) SaveOTP(ctx context.Context, email, purpose, code string) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "redis.otp.save",
		tracer.Tag("purpose", purpose))
	defer sp.Finish()

	body, err := json.Marshal(otpRecord{Code: code})
	if err != nil {
		return err
	}
	return r.C.Set(ctx, otpKey(email, purpose), body, otpTTL).Err()
}

// VerifyOTP checks the submitted code against the stored one. A match deletes
// the key before reporting success, so a code is single use; a mismatch
// increments the attempt counter, preserving the remaining TTL.
func (r *Redis) VerifyOTP(ctx context.Context, email, purpose, code string) (bool, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "redis.otp.verify",
		tracer.Tag("purpose", purpose))
	defer sp.Finish()

	key := otpKey(email, purpose)
	raw, err := r.C.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var rec otpRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		r.C.Del(ctx, key)
		return false, nil
	}

	if rec.Attempts >= maxOTPAttempts {
		r.C.Del(ctx, key)
		return false, nil
	}

	if rec.Code == code {
		r.C.Del(ctx, key)
		return true, nil
	}

	rec.Attempts++
	body, _ := json.Marshal(rec)
	ttl, err := r.C.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = time.Minute
	}
	r.C.Set(ctx, key, body, ttl)
	return false, nil
}

func secondsDuration(s int) time.Duration { return time.Duration(s) * time.Second }
