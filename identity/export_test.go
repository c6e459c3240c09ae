package identity

var ExpiryFromJWT = expiryFromJWT
