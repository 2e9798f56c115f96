package auth

import "context"

// Basic authorizes LRS requests with static credentials.
type Basic struct {
	Username string
	Password string
}

func (b Basic) Authorization(context.Context) string {
	return BasicHeader(b.Username, b.Password)
}
