package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand"
	"strings"

	"github.com/merchkpi/dashboard/backend/internal/domain"
	"github.com/mozillazg/go-pinyin"
	"golang.org/x/crypto/bcrypt"
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
	surname := commonSurnames[mrand.Intn(len(commonSurnames))]
	nameLength := mrand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[mrand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

// EmailFromChineseName builds "<pinyin><digits>@<domain>", e.g. wangwei42@example.com.
func EmailFromChineseName(chineseName string, emailDomain string) string {
	local := strings.Join(pinyin.LazyConvert(chineseName, nil), "")
	if local == "" {
		local = "user"
	}

	digitsLength := mrand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		local += string(digits[mrand.Intn(len(digits))])
	}

	return local + "@" + emailDomain
}

func GenerateRandomUser(password string, emailDomain string, roleID int64) (*domain.User, error) {
	name := GenerateRandomChineseName()
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &domain.User{
		Name:         name,
		Email:        EmailFromChineseName(name, emailDomain),
		PasswordHash: string(passwordHash),
		RoleID:       roleID,
	}, nil
}

// GenerateRandomCounts produces a plausible working day for a merchandiser.
func GenerateRandomCounts() domain.Counts {
	return domain.Counts{
		ProductUploads:   domain.Count(mrand.Intn(40)),
		ReOptimizations:  domain.Count(mrand.Intn(30)),
		PriceUpdates:     domain.Count(mrand.Intn(70)),
		PriceComparisons: domain.Count(mrand.Intn(50)),
		StockUpdates:     domain.Count(mrand.Intn(100)),
		CsvUpdates:       domain.Count(mrand.Intn(3)),
	}
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

func GenerateRandomOTP() (string, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", v.Int64()), nil
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) (string, error) {
	password := make([]rune, length)
	for i := range password {
		idx, err := randomIndex(len(letters))
		if err != nil {
			return "", err
		}
		password[i] = letters[idx]
	}
	return string(password), nil
}
