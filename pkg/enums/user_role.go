package enums

// UserRole distinguishes buyers from farmers who list products.
type UserRole string

const (
	UserRoleBuyer  UserRole = "buyer"
	UserRoleFarmer UserRole = "farmer"
)

var userRoles = set[UserRole]{UserRoleBuyer, UserRoleFarmer}

func (r UserRole) IsValid() bool { return userRoles.has(r) }
