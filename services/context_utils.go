package services

import "context"

// persistentContext detaches cleanup work from the request's cancellation
// while keeping its values.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
