package rediskey

import "fmt"

const (
	SessionPrefix          = "session"
	ShipmentsByStatePrefix = "expedicao:by_state"
	ModuleCatalogKey       = "module:catalog"
	ModulePlansKey         = "module:plans"
	OrgModulesPrefix       = "module:org"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildSessionKey returns "session:{sessionID}"
func BuildSessionKey(sessionID string) string {
	return NamespaceKey(SessionPrefix, sessionID)
}

// BuildShipmentsByStateKey returns "expedicao:by_state:{organizationID}"
func BuildShipmentsByStateKey(organizationID string) string {
	return NamespaceKey(ShipmentsByStatePrefix, organizationID)
}

// BuildOrgModulesKey returns "module:org:{organizationID}"
func BuildOrgModulesKey(organizationID string) string {
	return NamespaceKey(OrgModulesPrefix, organizationID)
}
