package model

// Role is the caller's role as carried in the access token's "role" claim.
type Role string

const (
	RoleGuest Role = "GUEST" // books and manages their own stays
	RoleStaff Role = "STAFF" // front desk of one hotel: check-in, check-out, cancellations
	RoleAdmin Role = "ADMIN" // manages a hotel's room types and inventory
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleGuest || r == RoleStaff || r == RoleAdmin
}

// Principal is the authenticated caller.  HotelID is zero for guests; staff
// and admins act only on their own hotel.
type Principal struct {
	UserID  uint64
	Role    Role
	HotelID uint64
}

// CanManageHotel reports whether p may operate on hotelID as staff.
func (p Principal) CanManageHotel(hotelID uint64) bool {
	return (p.Role == RoleStaff || p.Role == RoleAdmin) && p.HotelID != 0 && p.HotelID == hotelID
}
