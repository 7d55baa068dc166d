package domain

// VendorClass buckets manufacturers by the kind of hardware they ship.
type VendorClass string

const (
	ClassConsumer   VendorClass = "consumer"
	ClassMesh       VendorClass = "mesh"
	ClassEnterprise VendorClass = "enterprise"
	ClassIoT        VendorClass = "iot"
	ClassMobile     VendorClass = "mobile"
	ClassISP        VendorClass = "isp"
	ClassRandomized VendorClass = "randomized"
	ClassUnknown    VendorClass = "unknown"
)

// VendorInfo is the result of an OUI prefix lookup.
type VendorInfo struct {
	Manufacturer string      `json:"manufacturer"`
	Class        VendorClass `json:"class"`
}
