// Package cli provides the interactive authkeeper command-line client.
//
// It keeps one session in memory (user name, access token, refresh token)
// and talks to the server through package api. The REPL is started with
// App.Run and blocks until the user exits or stdin closes.
//
//	register   create an account (a verification email is sent)
//	verify     confirm the email address with the emailed code
//	resend     request a new verification code
//	login      authenticate and keep the token pair
//	refresh    rotate the token pair
//	whoami     show what the server knows about the access token
//	logout     revoke the refresh token and forget the session
package cli
