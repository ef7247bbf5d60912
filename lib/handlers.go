package lib

func handleAdminRunJob(c *Ctx) {
	if c.Param("secret", "") != Env("ADMIN_SECRET", NewID()) {
		c.Text(403, "Missing valid admin secret")
		return
	}
	c.Queue.RunJob(c.Param("name", ""), J{"arg": c.Param("arg", "")})
	c.Text(200, c.tracingTraceID)
}
