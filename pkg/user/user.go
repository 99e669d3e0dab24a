package user

type User struct {
	Id          int
	Uid         string
	TenantId    int
	DisplayName string
	Email       string
	Settings    Settings
}

// Settings carries per-user notification channel preferences. A reminder is
// delivered on every enabled channel; disabling all channels silences the user
// without removing them from events.
type Settings struct {
	Timezone string
	Channels Channels
}

type Channels struct {
	Email bool
	Push  bool
	InApp bool
}
