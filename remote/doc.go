// Package remote implements the HTTP session lookup:
//
//	POST {BaseURL}{SessionsPath}   {"email": "..."}  ->  {"id", "name", "email"}
//
// No credential besides the email is sent and nothing in the response is
// verified beyond its shape. [Client] satisfies [sessionkit.Lookup].
package remote
