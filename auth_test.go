package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOperator(t *testing.T) {
	Convey("Methods work as expected", t, func() {
		operator := new(Operator)
		Convey("Setting and verify password works correctly with hashes", func() {
			So(operator.SetPassword([]byte("hello123")), ShouldBeNil)
			So(operator.Password, ShouldStartWith, "$")

			So(operator.VerifyPassword([]byte("hello123")), ShouldBeNil)
			So(operator.VerifyPassword([]byte("hello12")), ShouldNotBeNil)
		})

		Convey("Invalid hash returns the correct error code", func() {
			operator.Password = "I DON'T WORK"
			So(operator.VerifyPassword([]byte("hello123")).Error(), ShouldContainSubstring, "hashedSecret too short")
		})
	})
}

func TestJWTGeneration(t *testing.T) {
	Convey("test basic claim creation", t, func() {
		ts, err := newJWT("hello test")
		So(ts, ShouldNotBeEmpty)
		So(err, ShouldBeNil)

		claims := &jwt.StandardClaims{}
		token, err := jwt.ParseWithClaims(ts, claims, func(*jwt.Token) (interface{}, error) {
			return JWT_HMAC_SECRET, nil
		})
		So(err, ShouldBeNil)
		So(token.Valid, ShouldBeTrue)
		So(claims.Subject, ShouldEqual, "hello test")
	})
}

func login(email, password string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(&LoginPayload{Email: email, Password: password})

	req := httptest.NewRequest("POST", "/api/login", bytes.NewBuffer(body))
	req.Header.Add("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	http.HandlerFunc(Login).ServeHTTP(rr, req)
	return rr
}

func TestLogin(t *testing.T) {
	_, teardown := setupTestEnv(t)
	defer teardown()

	operator := &Operator{
		Email: "login@test.case",
	}
	operator.SetPassword([]byte("testing123"))
	if err := ENV.DB.Save(operator); err != nil {
		t.Fatal(err)
	}

	Convey("Valid request works as expected", t, func() {
		rr := login("login@test.case", "testing123")

		So(rr.Code, ShouldEqual, http.StatusOK)
		var payload JWTPayload
		So(json.NewDecoder(rr.Body).Decode(&payload), ShouldBeNil)
		So(payload.SignedToken, ShouldNotBeEmpty)
	})

	Convey("Invalid credentials return error", t, func() {
		Convey("Incorrect username provides 404", func() {
			So(login("login-no@test.case", "testing123").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Incorrect password provides 403", func() {
			So(login("login@test.case", "testing12").Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("Missing email provides 400", func() {
			So(login("", "testing123").Code, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("Server errors render nicely", t, func() {
		broken := &Operator{Email: "broken@test.case", Password: "I DON'T WORK"}
		So(ENV.DB.Save(broken), ShouldBeNil)

		So(login("broken@test.case", "testing123").Code, ShouldEqual, http.StatusInternalServerError)
	})
}

func TestValidateJWT(t *testing.T) {
	protected := ValidateJWT(http.HandlerFunc(JWTRefresh))

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		return rr
	}

	Convey("with a freshly signed token", t, func() {
		ts, err := newJWT("operator@test.case")
		So(err, ShouldBeNil)

		Convey("the authorization header is accepted", func() {
			req := httptest.NewRequest("GET", "/api/refresh_token", nil)
			req.Header.Set("Authorization", "Bearer "+ts)
			So(serve(req).Code, ShouldEqual, http.StatusOK)
		})

		Convey("the query parameter is accepted", func() {
			req := httptest.NewRequest("GET", "/ws/control?jwt="+ts, nil)
			So(serve(req).Code, ShouldEqual, http.StatusOK)
		})

		Convey("the cookie is accepted", func() {
			req := httptest.NewRequest("GET", "/api/refresh_token", nil)
			req.AddCookie(&http.Cookie{Name: "jwt", Value: ts})
			So(serve(req).Code, ShouldEqual, http.StatusOK)
		})
	})

	Convey("missing tokens are rejected", t, func() {
		req := httptest.NewRequest("GET", "/api/refresh_token", nil)
		rr := serve(req)
		So(rr.Code, ShouldEqual, http.StatusUnauthorized)
		So(rr.Body.String(), ShouldContainSubstring, JWTEmpty.Error())
	})

	Convey("tampered tokens are rejected", t, func() {
		ts, _ := newJWT("operator@test.case")
		req := httptest.NewRequest("GET", "/api/refresh_token", nil)
		req.Header.Set("Authorization", "Bearer "+ts+"x")
		So(serve(req).Code, ShouldEqual, http.StatusUnauthorized)
	})

	Convey("expired tokens say so", t, func() {
		claims := jwt.StandardClaims{
			Subject:   "operator@test.case",
			ExpiresAt: time.Now().Add(-time.Minute).Unix(),
		}
		ts, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(JWT_HMAC_SECRET)
		So(err, ShouldBeNil)

		req := httptest.NewRequest("GET", "/api/refresh_token", nil)
		req.Header.Set("Authorization", "Bearer "+ts)
		rr := serve(req)
		So(rr.Code, ShouldEqual, http.StatusUnauthorized)
		So(rr.Body.String(), ShouldContainSubstring, "expired")
	})
}
