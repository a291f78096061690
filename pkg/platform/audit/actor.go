package audit

import (
	"context"

	"companyapp/pkg/requestcontext"
)

// ResolveActor returns the principal bound to ctx, or the Unknown/Anonymous
// pair when there is none. It never fails and accepts a nil context.
func ResolveActor(ctx context.Context) Actor {
	p, ok := requestcontext.Identity(ctx)
	if !ok {
		return Actor{ID: UnknownActorID, Name: UnknownActorName}
	}
	name := p.DisplayName()
	if name == "" {
		name = UnknownActorName
	}
	return Actor{ID: p.ID, Name: name}
}

func (a Actor) normalized() Actor {
	if a.ID == "" {
		a.ID = UnknownActorID
	}
	if a.Name == "" {
		a.Name = UnknownActorName
	}
	return a
}
