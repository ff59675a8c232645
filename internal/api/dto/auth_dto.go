package dto

// RegisterReq 店主注册请求
type RegisterReq struct {
	Name     string `json:"name" binding:"required,min=2"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginReq 店主登录请求
type LoginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenPairResp 登录响应
type TokenPairResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// EmployeeLoginReq 员工登录请求（店铺由租户解析中间件确定）
type EmployeeLoginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// EmployeeLoginResp 员工登录响应
type EmployeeLoginResp struct {
	Token string `json:"token"`
}
