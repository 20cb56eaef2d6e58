package auth

// Authorize reports whether a validated claim set satisfies the required
// roles. An empty requirement allows any authenticated principal; otherwise at
// least one held role must appear in the requirement. Roles are the snapshot
// embedded at issuance time.
func Authorize(claims *Claims, requiredRoles []string) bool {
	if len(requiredRoles) == 0 {
		return true
	}
	if claims == nil {
		return false
	}
	held := make(map[string]struct{}, len(claims.Roles))
	for _, r := range claims.Roles {
		held[r] = struct{}{}
	}
	for _, r := range requiredRoles {
		if _, ok := held[r]; ok {
			return true
		}
	}
	return false
}
