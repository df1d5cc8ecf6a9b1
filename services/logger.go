package services

import "github.com/goodsco/referidos_backend/utils"

var logger = utils.PackageLogger("services")
