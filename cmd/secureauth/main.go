package main

import "secureauth/internal/app"

// @title                       SecureAuth API
// @version                     1.0
// @description                 Регистрация, вход и подтверждение почты одноразовым кодом.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	app.Run()
}
