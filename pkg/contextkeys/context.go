package contextkeys

// Используем кастомный тип, чтобы избежать коллизий
type contextKey string

const (
	// DBContextKey - ключ, по которому хранится *gorm.DB в context
	DBContextKey = contextKey("db")

	// ActorContextKey holds the authenticated auth.Actor.
	ActorContextKey = contextKey("actor")
)
