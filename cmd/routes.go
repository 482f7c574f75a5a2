package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.requestID, app.logRequest, secureHeaders, makeResponseJSON)
	triggerMiddleware := standardMiddleware.Append(app.requireAPIKey)

	mux := pat.New()

	mux.Post("/verify-subscription", triggerMiddleware.ThenFunc(app.verifyHandler.VerifySubscription))
	mux.Post("/send-push", triggerMiddleware.ThenFunc(app.pushHandler.SendPush))
	mux.Post("/anonymize-account", standardMiddleware.ThenFunc(app.anonymizeHandler.AnonymizeAccount))

	return mux
}
