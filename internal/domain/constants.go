package domain

// DefaultRefreshSentinel is the branch whose status a simulated refresh toggles.
const DefaultRefreshSentinel = "feature/payment-gateway"
