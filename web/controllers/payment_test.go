package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stylize/payment"
)

func TestCreateOrder(t *testing.T) {
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Amount   int               `json:"amount"`
			Currency string            `json:"currency"`
			Notes    map[string]string `json:"notes"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, testTrialID, req.Notes["trial_id"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "order_123", "amount": req.Amount, "currency": req.Currency, "status": "created",
		})
	}))
	defer gw.Close()

	r, mock := newTestApp(t, "http://unused", gw.URL)

	mock.ExpectExec("INSERT INTO `payment_orders`").WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payment/order",
		strings.NewReader(`{"trial_id":"`+testTrialID+`"}`))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	// amount defaults to the configured ₹9
	assert.Contains(t, w.Body.String(), `"order_id":"order_123"`)
	assert.Contains(t, w.Body.String(), `"amount":900`)
	assert.Contains(t, w.Body.String(), `"key_id":"key_test"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderGatewayDown(t *testing.T) {
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer gw.Close()

	r, mock := newTestApp(t, "http://unused", gw.URL)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payment/order",
		strings.NewReader(`{"trial_id":"`+testTrialID+`"}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderRejectsNegativeAmount(t *testing.T) {
	r, mock := newTestApp(t, "http://unused", "http://unused")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payment/order",
		strings.NewReader(`{"trial_id":"`+testTrialID+`","amount":-5}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func verifyBody(sig string) string {
	return `{"order_id":"O1","payment_id":"P1","signature":"` + sig + `","trial_id":"` + testTrialID + `"}`
}

func orderRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"order_id", "trial_id", "amount", "currency", "status", "payment_id", "created_at", "updated_at",
	})
}

func TestVerifyPaymentCreditsOnValidSignature(t *testing.T) {
	r, mock := newTestApp(t, "http://unused", "http://unused")

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM `payment_orders`").
		WillReturnRows(orderRows().AddRow("O1", testTrialID, 900, "INR", "created", "", now, now))
	mock.ExpectExec("UPDATE `trial_records` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `payment_orders` SET").WillReturnResult(sqlmock.NewResult(0, 1))

	sig := payment.Sign(testKeySecret, "O1", "P1")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payment/verify", strings.NewReader(verifyBody(sig)))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"verified":true`)
	assert.Contains(t, w.Body.String(), `"credited":true`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyPaymentReplayDoesNotRecredit(t *testing.T) {
	r, mock := newTestApp(t, "http://unused", "http://unused")

	// order already settled: acknowledge, but no second credit increment
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM `payment_orders`").
		WillReturnRows(orderRows().AddRow("O1", testTrialID, 900, "INR", "paid", "P1", now, now))

	sig := payment.Sign(testKeySecret, "O1", "P1")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payment/verify", strings.NewReader(verifyBody(sig)))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"verified":true`)
	assert.Contains(t, w.Body.String(), `"credited":false`)
	assert.Contains(t, w.Body.String(), `"status":"already_processed"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyPaymentCreditsOrderOwner(t *testing.T) {
	r, mock := newTestApp(t, "http://unused", "http://unused")

	// a forwarded confirmation names a different trial identity; the credit
	// must go to the identity the order was created for
	const ownerID = "f47ac10b-58cc-4372-a567-0e02b2c3d479"
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM `payment_orders`").
		WillReturnRows(orderRows().AddRow("O1", ownerID, 900, "INR", "created", "", now, now))
	mock.ExpectExec("UPDATE `trial_records` SET").
		WithArgs(sqlmock.AnyArg(), 1, ownerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `payment_orders` SET").WillReturnResult(sqlmock.NewResult(0, 1))

	sig := payment.Sign(testKeySecret, "O1", "P1")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payment/verify", strings.NewReader(verifyBody(sig)))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"credited":true`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyPaymentRejectsBadSignature(t *testing.T) {
	r, mock := newTestApp(t, "http://unused", "http://unused")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payment/verify",
		strings.NewReader(verifyBody("deadbeef")))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"verified":false`)
	assert.Contains(t, w.Body.String(), `"kind":"verification"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyPaymentBookkeepingFailure(t *testing.T) {
	r, mock := newTestApp(t, "http://unused", "http://unused")

	// no local order row, so the caller identity is used; payment verified
	// but the credit update hits no row
	mock.ExpectQuery("SELECT (.+) FROM `payment_orders`").WillReturnRows(orderRows())
	mock.ExpectExec("UPDATE `trial_records` SET").WillReturnResult(sqlmock.NewResult(0, 0))

	sig := payment.Sign(testKeySecret, "O1", "P1")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payment/verify", strings.NewReader(verifyBody(sig)))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"verified":true`)
	assert.Contains(t, w.Body.String(), `"credited":false`)
	assert.Contains(t, w.Body.String(), "contact support")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyPaymentMissingFields(t *testing.T) {
	r, mock := newTestApp(t, "http://unused", "http://unused")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payment/verify",
		strings.NewReader(`{"order_id":"O1"}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
