package tenant

import "time"

type Tenant struct {
	Id        int
	Name      string
	CreatedAt time.Time
}
