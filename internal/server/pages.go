package server

import (
	"html/template"
	"net/http"
)

// The callback pages render in the WebView the mobile client opens for the
// consent flow; the user reads them and closes the window.

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head><title>Authentication Successful</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
	<h1>&#10003; Connected to Google Calendar</h1>
	<p>You can close this window and return to the app.</p>
</body>
</html>`))

var failurePage = template.Must(template.New("failure").Parse(`<!DOCTYPE html>
<html>
<head><title>Authentication Failed</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
	<h1>Authentication Failed</h1>
	<p>{{.Reason}}</p>
	<p>Please close this window and try again.</p>
</body>
</html>`))

func renderSuccessPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	successPage.Execute(w, nil)
}

func renderFailurePage(w http.ResponseWriter, statusCode int, reason string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	failurePage.Execute(w, struct{ Reason string }{Reason: reason})
}
