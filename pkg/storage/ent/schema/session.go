package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Session holds the schema definition for the Session entity.
// Each row is the recorded outcome of one supervised stream session.
type Session struct {
	ent.Schema
}

// Fields of the Session.
func (Session) Fields() []ent.Field {
	return []ent.Field{
		// id is the session UUID assigned by the supervisor
		field.String("id").
			Unique().
			Immutable().
			NotEmpty(),

		field.String("thread_id"),

		// engine is the workflow engine that produced the stream
		field.String("engine").
			Default(""),

		// state is the terminal state: completed, cancelled, timed_out or failed
		field.String("state").
			NotEmpty(),

		// events is the number of events forwarded to the caller
		field.Int("events").
			Default(0),

		// error is the outcome error for failed and timed out sessions
		field.Text("error").
			Default(""),

		field.Int64("timeout_ms").
			Default(0),

		field.Time("started_at"),

		field.Time("ended_at"),

		field.Int64("duration_ms").
			Default(0),
	}
}

// Indexes of the Session.
func (Session) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("thread_id"),
		index.Fields("started_at"),
	}
}
