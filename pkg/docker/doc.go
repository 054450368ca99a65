// Package docker runs disposable PostgreSQL instances in Docker for trying out
// migration pipelines and for integration tests.
//
// Containers are managed through the testcontainers PostgreSQL module. Each
// container gets a fresh database, so a pipeline can be applied, inspected and
// thrown away without touching a shared server.
//
// # Usage Example
//
//	container := docker.NewWithOptions(docker.Options{
//		Version: "16",
//	})
//
//	ctx := context.Background()
//	defer container.Stop(ctx)
//
//	if err := container.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	dsn, _ := container.GetDSN(ctx)
//
//	conn, _ := database.Connect(ctx, dsn)
//	defer conn.Close(ctx)
package docker
