// Command go-user-api serves the user account API: registration with
// avatar and cover uploads, cookie or bearer JWT sessions with single-use
// refresh tokens, and profile updates. Configuration is read from
// config.yml in the working directory and from the environment.
package main

import (
	"go-user-api/app"
)

// @title           Go User API
// @version         1.0
// @description     Registers users with profile media stored on Cloudinary or S3, issues
// @description     access/refresh JWT pairs (also set as HttpOnly cookies) and lets
// @description     signed-in users rotate sessions, change passwords and update their profile.
// @description     Every response uses the {statusCode, data, message, success} envelope.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

// @tag.name         users
// @tag.description  Registration, sessions and profile management
// @tag.name         health
// @tag.description  Liveness and dependency status

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Access token as "Bearer <token>". The accessToken cookie is accepted as well.
func main() {
	app.Run()
}
