package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/crypto/bcrypt"

	"github.com/cafems-dev/shift-request/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

// GenerateRandomStaff 生成一个隶属于指定门店的随机员工，大约每五个人里有一个经理
func GenerateRandomStaff(password string, emailDomainName string, branchID int64) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := domain.RoleStaff
	if rand.Intn(5) == 0 {
		role = domain.RoleManager
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         role,
		BranchID:     &branchID,
	}

	return user, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

var branchDistricts = []string{"中山", "滨江", "天河", "学府", "环城", "望湖", "曙光", "花园"}

func GenerateRandomBranch() *domain.Branch {
	district := branchDistricts[rand.Intn(len(branchDistricts))]
	return &domain.Branch{
		Name:    fmt.Sprintf("%s路店%03d", district, rand.Intn(1000)),
		Address: fmt.Sprintf("%s路 %d 号", district, rand.Intn(500)+1),
	}
}

var shiftWindows = [][2]string{
	{"07:00:00", "11:00:00"},
	{"11:00:00", "15:00:00"},
	{"15:00:00", "19:00:00"},
	{"19:00:00", "22:30:00"},
}

var requestReasons = []string{
	"家里有事",
	"临时有课",
	"身体不适",
	"门店缺人",
	"和同事商量好了",
}

// GenerateRandomShiftRequest 生成一条满足字段约束的随机申请：
// 两级审批的类型带目标同事和完整班次时间，加班申请带加班时长
func GenerateRandomShiftRequest(staff *domain.User, target *domain.User) *domain.ShiftRequest {
	types := []domain.RequestType{
		domain.RequestTypeLeave,
		domain.RequestTypeOvertime,
	}
	if target != nil {
		types = append(types,
			domain.RequestTypeSwap,
			domain.RequestTypePickUp,
			domain.RequestTypeTwoWaySwap,
		)
	}
	requestType := types[rand.Intn(len(types))]

	req := &domain.ShiftRequest{
		Type:        requestType,
		StaffUserID: staff.ID,
		BranchID:    *staff.BranchID,
		ShiftDate:   time.Now().AddDate(0, 0, rand.Intn(14)+1),
		Reason:      requestReasons[rand.Intn(len(requestReasons))],
		Status:      requestType.InitialStatus(),
	}

	switch {
	case requestType.RequiresTarget():
		req.TargetStaffUserID = &target.ID
		window := shiftWindows[rand.Intn(len(shiftWindows))]
		req.StartTime = &window[0]
		req.EndTime = &window[1]
	case requestType == domain.RequestTypeOvertime:
		hours := float64(rand.Intn(8)+1) / 2
		req.OvertimeHours = &hours
	}

	return req
}
