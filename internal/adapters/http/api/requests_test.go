package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func strPtr(s string) *string { return &s }

func TestCreateUserRequest_Validate(t *testing.T) {
	Convey("Given a create user request", t, func() {
		req := createUserRequest{
			Email:          strPtr("dev@example.com"),
			GithubToken:    strPtr("gho_x"),
			GithubUsername: strPtr("dev"),
		}

		Convey("When all fields are valid", func() {
			Convey("Then validation should pass", func() {
				So(req.validate(), ShouldBeNil)
			})
		})

		Convey("When the email is missing", func() {
			req.Email = nil
			err := req.validate()

			Convey("Then validation should fail on email", func() {
				So(errors.Is(err, ErrValidation), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "Invalid or missing 'email'")
			})
		})

		Convey("When the email has a display name", func() {
			req.Email = strPtr("Dev <dev@example.com>")
			So(req.validate(), ShouldNotBeNil)
		})

		Convey("When the token is missing", func() {
			req.GithubToken = nil
			So(req.validate().Error(), ShouldEqual, "Invalid or missing 'githubToken'")
		})

		Convey("When the username is blank", func() {
			req.GithubUsername = strPtr("  ")
			So(req.validate().Error(), ShouldEqual, "Invalid or missing 'githubUsername'")
		})
	})
}

func TestUpdateUserRequest_Validate(t *testing.T) {
	Convey("Given an update request", t, func() {
		Convey("When it is empty", func() {
			So(updateUserRequest{}.validate(), ShouldBeNil)
			So(updateUserRequest{}.toUpdate().Empty(), ShouldBeTrue)
		})

		Convey("When the email is cleared", func() {
			So(updateUserRequest{Email: strPtr("")}.validate(), ShouldBeNil)
		})

		Convey("When the email is malformed", func() {
			So(updateUserRequest{Email: strPtr("x")}.validate().Error(), ShouldEqual, "Invalid 'email'")
		})
	})
}

// outcomesBody encodes every outcome as true, then applies overrides.
func outcomesBody(overrides map[string]any) []byte {
	m := make(map[string]any, len(outcomeFields))
	for _, f := range outcomeFields {
		m[f] = true
	}
	for k, v := range overrides {
		m[k] = v
	}
	b, _ := json.Marshal(m)
	return b
}

func TestParseOutcomes(t *testing.T) {
	Convey("Given score bodies", t, func() {
		Convey("When the body is not an object", func() {
			_, err := parseOutcomes([]byte(`[true]`))
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
		})

		Convey("When the body is empty", func() {
			_, err := parseOutcomes([]byte(`{}`))
			So(errors.Is(err, ErrValidation), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "Invalid or missing 'liveness'")
		})

		Convey("When every field is a boolean", func() {
			out, err := parseOutcomes(outcomesBody(map[string]any{"createAccount500": false}))
			So(err, ShouldBeNil)
			So(out.Liveness, ShouldBeTrue)
			So(out.CreateAccount500, ShouldBeFalse)
			So(out.Passed(), ShouldEqual, 20)
		})

		Convey("When a field is null", func() {
			_, err := parseOutcomes(outcomesBody(map[string]any{"liveness": nil}))
			So(errors.Is(err, ErrValidation), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "Invalid or missing 'liveness'")
		})

		Convey("When a field is a string", func() {
			_, err := parseOutcomes(outcomesBody(map[string]any{"deleteArticles404": "true"}))
			So(errors.Is(err, ErrValidation), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "Invalid or missing 'deleteArticles404'")
		})

		Convey("Then the required field list has 21 entries", func() {
			So(len(outcomeFields), ShouldEqual, 21)
		})
	})
}

func TestValidateUserID(t *testing.T) {
	Convey("Given user ids", t, func() {
		So(validateUserID("4f9d8c1e-3b7a-4e6f-9a2b-1c0d5e7f8a9b"), ShouldBeNil)
		So(validateUserID(""), ShouldNotBeNil)
		So(validateUserID("5e9f1c2b3a4d5e6f7a8b9c0d"), ShouldNotBeNil)
	})
}

func TestErrorClass(t *testing.T) {
	Convey("Given error statuses", t, func() {
		So(errorClass(http.StatusBadRequest), ShouldEqual, "client_error")
		So(errorClass(http.StatusNotFound), ShouldEqual, "not_found")
		So(errorClass(http.StatusConflict), ShouldEqual, "conflict")
		So(errorClass(http.StatusUnprocessableEntity), ShouldEqual, "validation")
		So(errorClass(http.StatusServiceUnavailable), ShouldEqual, "unavailable")
		So(errorClass(http.StatusInternalServerError), ShouldEqual, "server_error")
	})
}
